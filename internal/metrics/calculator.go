package metrics

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"go-image-denoise/internal/raster"
)

// Comparison measures how far an image is from a reference.
type Comparison struct {
	MSE  float64
	PSNR float64 // dB; +Inf when the images are identical
}

// Calculator computes quality metrics for rasters.
type Calculator interface {
	Compare(reference, img *raster.Raster) (Comparison, error)
	LaplacianVariance(img *raster.Raster) float64
}

// calculator reuses float buffers between calls via a pool.
type calculator struct {
	slicePool sync.Pool
}

// NewCalculator creates a metrics calculator backed by gonum/stat.
func NewCalculator() Calculator {
	return &calculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

func (c *calculator) buffer(n int) []float64 {
	data := c.slicePool.Get().([]float64)
	if cap(data) < n {
		data = make([]float64, 0, n)
	}
	return data[:0]
}

// Compare computes per-channel mean squared error and PSNR for 8-bit data.
func (c *calculator) Compare(reference, img *raster.Raster) (Comparison, error) {
	if !reference.SameShape(img) {
		return Comparison{}, fmt.Errorf("shape mismatch: %s vs %s", reference, img)
	}
	if len(img.Pix) == 0 {
		return Comparison{}, fmt.Errorf("empty raster")
	}

	sq := c.buffer(len(img.Pix))
	defer func() { c.slicePool.Put(sq[:0]) }()
	for i := range img.Pix {
		d := float64(reference.Pix[i]) - float64(img.Pix[i])
		sq = append(sq, d*d)
	}

	mse := stat.Mean(sq, nil)
	return Comparison{MSE: mse, PSNR: PSNR(mse)}, nil
}

// PSNR converts a mean squared error on 8-bit data to decibels.
func PSNR(mse float64) float64 {
	if mse <= 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(255*255/mse)
}

// LaplacianVariance is the variance of the 4-neighbour Laplacian over the
// luminance plane. Higher values mean more high-frequency content.
func (c *calculator) LaplacianVariance(img *raster.Raster) float64 {
	width, height := img.Width, img.Height
	// Sample variance needs at least two Laplacian values.
	if width < 3 || height < 3 || (width-2)*(height-2) < 2 {
		return 0
	}
	gray := luminance(img)

	data := c.buffer((width - 2) * (height - 2))
	defer func() { c.slicePool.Put(data[:0]) }()

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			laplacian := -4*gray[i] + gray[i-width] + gray[i+width] + gray[i-1] + gray[i+1]
			data = append(data, laplacian)
		}
	}

	return stat.Variance(data, nil)
}

// luminance uses ITU-R BT.601 weights.
func luminance(img *raster.Raster) []float64 {
	gray := make([]float64, img.Width*img.Height)
	for i := range gray {
		p := img.Pix[i*raster.Channels:]
		gray[i] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
	}
	return gray
}
