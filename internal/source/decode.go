package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-image-denoise/internal/raster"
)

var (
	// ErrNoImage means no upload, example or URL produced an image.
	ErrNoImage = errors.New("no image available")
	// ErrUnreadableImage means bytes were present but are not a decodable image.
	ErrUnreadableImage = errors.New("could not read image")
)

// Decoded is a decoded raster plus what was learned while decoding it.
type Decoded struct {
	Raster *raster.Raster
	Format string
	MIME   string
	// Original dimensions before any downscaling.
	SourceWidth  int
	SourceHeight int
}

// DefaultMaxPixels caps width×height of an image before it is decoded.
const DefaultMaxPixels = 64_000_000

// Limits bound what Decode accepts and produces. Zero disables a limit.
type Limits struct {
	// Longest side of the decoded raster; larger images are downscaled.
	MaxDimension int
	// Pixel count of the encoded image; larger images are rejected unread.
	MaxPixels int
}

// Resized reports whether the raster was downscaled on load.
func (d *Decoded) Resized() bool {
	return d.Raster.Width != d.SourceWidth || d.Raster.Height != d.SourceHeight
}

// Decode sniffs and decodes image bytes into an RGB raster. The header is
// checked against limits.MaxPixels before any pixel data is allocated.
func Decode(data []byte, limits Limits) (*Decoded, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrUnreadableImage, mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(limits.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds the %d pixel limit",
			ErrUnreadableImage, cfg.Width, cfg.Height, limits.MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrUnreadableImage)
	}

	return &Decoded{
		Raster:       raster.FromImage(fit(img, limits.MaxDimension)),
		Format:       format,
		MIME:         mtype.String(),
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
	}, nil
}

// fit scales img down so neither side exceeds maxDimension, keeping aspect.
func fit(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}

	scale := float64(maxDimension) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
