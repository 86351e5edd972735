package denoise

import (
	"fmt"
	"strings"

	"go-image-denoise/internal/raster"
)

// Kind selects the denoising filter.
type Kind string

const (
	KindMedian   Kind = "median"
	KindGaussian Kind = "gaussian"
)

// Parameter bounds exposed by the UI sliders.
const (
	MinKernelSize     = 3
	MaxKernelSize     = 11
	DefaultKernelSize = 3

	MinSigma     = 0.5
	MaxSigma     = 5.0
	DefaultSigma = 1.0

	// GaussianWindow is the fixed side length of the Gaussian kernel.
	GaussianWindow = 5
)

// Kinds lists every supported filter kind in display order.
func Kinds() []Kind {
	return []Kind{KindMedian, KindGaussian}
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMedian:
		return KindMedian, nil
	case KindGaussian:
		return KindGaussian, nil
	default:
		return "", fmt.Errorf("unsupported filter type %q", s)
	}
}

// Title is the capitalised name used in captions.
func (k Kind) Title() string {
	switch k {
	case KindMedian:
		return "Median"
	case KindGaussian:
		return "Gaussian"
	default:
		return string(k)
	}
}

// Filter denoises a raster, returning a new raster of the same shape.
type Filter interface {
	Apply(src *raster.Raster) *raster.Raster
	Kind() Kind
	// Strength is the kernel size or sigma, depending on the kind.
	Strength() float64
}

// Config selects a filter and its strength.
type Config struct {
	Kind       Kind    `json:"kind"`
	KernelSize int     `json:"kernel_size,omitempty"`
	Sigma      float64 `json:"sigma,omitempty"`
}

// DefaultConfig mirrors the demo's initial controls.
func DefaultConfig() Config {
	return Config{
		Kind:       KindMedian,
		KernelSize: DefaultKernelSize,
		Sigma:      DefaultSigma,
	}
}

// Normalized coerces even kernel sizes up to the next odd size.
func (c Config) Normalized() Config {
	if c.Kind == KindMedian && c.KernelSize%2 == 0 {
		c.KernelSize++
	}
	return c
}

// Validate checks the strength parameter for the selected kind. Even kernel
// sizes are accepted here because Normalized coerces them.
func (c Config) Validate() error {
	switch c.Kind {
	case KindMedian:
		if c.KernelSize < MinKernelSize || c.KernelSize > MaxKernelSize {
			return fmt.Errorf("kernel size must be between %d and %d (got %d)",
				MinKernelSize, MaxKernelSize, c.KernelSize)
		}
	case KindGaussian:
		if c.Sigma < MinSigma || c.Sigma > MaxSigma {
			return fmt.Errorf("sigma must be between %.1f and %.1f (got %g)", MinSigma, MaxSigma, c.Sigma)
		}
	default:
		return fmt.Errorf("unsupported filter type %q", c.Kind)
	}
	return nil
}

// New builds the filter described by c after validation and normalisation.
func New(c Config) (Filter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c = c.Normalized()
	switch c.Kind {
	case KindMedian:
		return NewMedian(c.KernelSize), nil
	default:
		return NewGaussian(c.Sigma), nil
	}
}
