package presentation

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/anthonynsimon/bild/imgio"

	"go-image-denoise/internal/denoise"
	"go-image-denoise/internal/raster"
)

// Fixed panel captions.
const (
	CaptionOriginal = "Original"
	CaptionNoisy    = "With Salt & Pepper Noise"
)

// DenoisedCaption returns "Denoised (Median)" or "Denoised (Gaussian)".
func DenoisedCaption(kind denoise.Kind) string {
	return fmt.Sprintf("Denoised (%s)", kind.Title())
}

// Panel is a captioned raster ready for display.
type Panel struct {
	Caption string
	Raster  *raster.Raster
}

// Denoised pairs a filter kind with its output.
type Denoised struct {
	Kind   denoise.Kind
	Raster *raster.Raster
}

// BuildPanels orders the panels as original, noisy, then one per filter output.
func BuildPanels(original, noisy *raster.Raster, outputs ...Denoised) []Panel {
	panels := make([]Panel, 0, 2+len(outputs))
	panels = append(panels,
		Panel{Caption: CaptionOriginal, Raster: original},
		Panel{Caption: CaptionNoisy, Raster: noisy},
	)
	for _, o := range outputs {
		panels = append(panels, Panel{Caption: DenoisedCaption(o.Kind), Raster: o.Raster})
	}
	return panels
}

// EncodePNG encodes a raster as an opaque PNG.
func EncodePNG(r *raster.Raster) ([]byte, error) {
	if r.Empty() {
		return nil, fmt.Errorf("encode png: empty raster")
	}
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, r.ToRGBA()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI encodes a raster as a data:image/png;base64 URI.
func DataURI(r *raster.Raster) (string, error) {
	data, err := EncodePNG(r)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
