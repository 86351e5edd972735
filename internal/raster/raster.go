package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Channels is the number of color channels in a Raster.
const Channels = 3

// Raster is an 8-bit RGB image stored as packed R,G,B triples in row-major order.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed raster of the given size.
func New(width, height int) *Raster {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Filled returns a raster with every pixel set to c.
func Filled(width, height int, c color.RGBA) *Raster {
	r := New(width, height)
	for i := 0; i < len(r.Pix); i += Channels {
		r.Pix[i] = c.R
		r.Pix[i+1] = c.G
		r.Pix[i+2] = c.B
	}
	return r
}

// FromImage converts any image to an RGB raster, dropping alpha.
func FromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	r := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < r.Height; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+r.Width*4]
		dst := r.Pix[y*r.Width*Channels : (y+1)*r.Width*Channels]
		for x := 0; x < r.Width; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return r
}

// ToRGBA returns an opaque *image.RGBA view-copy of the raster.
func (r *Raster) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i < len(r.Pix); i, j = i+3, j+4 {
		img.Pix[j] = r.Pix[i]
		img.Pix[j+1] = r.Pix[i+1]
		img.Pix[j+2] = r.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Bounds returns the raster rectangle anchored at the origin.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// Offset returns the index of the first channel of pixel (x, y).
func (r *Raster) Offset(x, y int) int {
	return (y*r.Width + x) * Channels
}

// At returns the RGB value at (x, y).
func (r *Raster) At(x, y int) color.RGBA {
	i := r.Offset(x, y)
	return color.RGBA{R: r.Pix[i], G: r.Pix[i+1], B: r.Pix[i+2], A: 0xff}
}

// Set writes the RGB value at (x, y).
func (r *Raster) Set(x, y int, c color.RGBA) {
	i := r.Offset(x, y)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c.R, c.G, c.B
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// SameShape reports whether two rasters have equal dimensions.
func (r *Raster) SameShape(o *Raster) bool {
	return r.Width == o.Width && r.Height == o.Height && len(r.Pix) == len(o.Pix)
}

// Equal reports whether two rasters are identical in shape and content.
func (r *Raster) Equal(o *Raster) bool {
	if !r.SameShape(o) {
		return false
	}
	for i := range r.Pix {
		if r.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Empty reports whether the raster holds no pixels.
func (r *Raster) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster(%dx%dx%d)", r.Width, r.Height, Channels)
}

// FloatRaster holds the same layout as Raster with values normalised to [0,1].
type FloatRaster struct {
	Width  int
	Height int
	Pix    []float64
}

// Normalize maps every 8-bit channel to [0,1].
func (r *Raster) Normalize() *FloatRaster {
	out := &FloatRaster{Width: r.Width, Height: r.Height, Pix: make([]float64, len(r.Pix))}
	for i, v := range r.Pix {
		out.Pix[i] = float64(v) / 255
	}
	return out
}

// ToRaster converts back to 8 bits, clamping to [0,1] and rounding to nearest.
func (f *FloatRaster) ToRaster() *Raster {
	out := New(f.Width, f.Height)
	for i, v := range f.Pix {
		out.Pix[i] = toUint8(v)
	}
	return out
}

func toUint8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
