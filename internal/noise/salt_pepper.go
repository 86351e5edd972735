package noise

import (
	"fmt"
	"math/rand/v2"

	"go-image-denoise/internal/raster"
)

// Interface bounds for the noise amount slider.
const (
	MinAmount     = 0.0
	MaxAmount     = 0.2
	DefaultAmount = 0.05
)

// Config parameterises salt-and-pepper corruption.
type Config struct {
	// Amount is the probability that a pixel-channel is replaced.
	Amount float64
	// Seed fixes the random source. Nil draws a fresh source per call.
	Seed *uint64
}

// DefaultConfig returns the demo's initial noise settings.
func DefaultConfig() Config {
	return Config{Amount: DefaultAmount}
}

// WithSeed returns a copy of the config with a fixed seed.
func (c Config) WithSeed(seed uint64) Config {
	c.Seed = &seed
	return c
}

// Injector applies salt-and-pepper noise.
type Injector interface {
	Inject(src *raster.Raster, cfg Config) (*raster.FloatRaster, error)
}

type saltPepper struct{}

// NewInjector returns the salt-and-pepper injector.
func NewInjector() Injector {
	return saltPepper{}
}

// Inject returns a new normalised raster in which each channel value is,
// with probability cfg.Amount, replaced by 0 or 1 with equal odds.
func (saltPepper) Inject(src *raster.Raster, cfg Config) (*raster.FloatRaster, error) {
	if cfg.Amount < 0 || cfg.Amount > 1 {
		return nil, fmt.Errorf("noise amount must be within [0, 1] (got %g)", cfg.Amount)
	}
	rng := newRand(cfg.Seed)

	out := src.Normalize()
	for i := range out.Pix {
		if rng.Float64() >= cfg.Amount {
			continue
		}
		if rng.IntN(2) == 0 {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 1
		}
	}
	return out, nil
}

func newRand(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
