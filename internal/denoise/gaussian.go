package denoise

import (
	"math"

	"github.com/anthonynsimon/bild/convolution"

	"go-image-denoise/internal/raster"
)

type gaussianFilter struct {
	sigma  float64
	kernel *convolution.Kernel
}

// NewGaussian returns a Gaussian blur with a fixed 5×5 window.
// Non-positive sigma yields the identity transform.
func NewGaussian(sigma float64) Filter {
	return &gaussianFilter{sigma: sigma, kernel: GaussianKernel(GaussianWindow, sigma)}
}

func (g *gaussianFilter) Kind() Kind        { return KindGaussian }
func (g *gaussianFilter) Strength() float64 { return g.sigma }

func (g *gaussianFilter) Apply(src *raster.Raster) *raster.Raster {
	if src.Empty() || g.sigma <= 0 {
		return src.Clone()
	}
	// Convolve truncates channel sums; the bias turns that into rounding.
	out := convolution.Convolve(src.ToRGBA(), g.kernel, &convolution.Options{
		Bias:      0.5,
		Wrap:      false,
		KeepAlpha: true,
	})
	return raster.FromImage(out)
}

// GaussianKernel builds a size×size kernel with weights
// exp(-(x²+y²)/(2σ²)) normalised to sum to one.
func GaussianKernel(size int, sigma float64) *convolution.Kernel {
	k := convolution.NewKernel(size, size)
	center := size / 2
	if sigma <= 0 {
		k.Matrix[center*k.Width+center] = 1
		return k
	}

	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x-center), float64(y-center)
			w := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			k.Matrix[y*k.Width+x] = w
			sum += w
		}
	}
	for i := range k.Matrix {
		k.Matrix[i] /= sum
	}
	return k
}
