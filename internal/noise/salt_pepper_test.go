package noise

import (
	"image/color"
	"math"
	"testing"

	"go-image-denoise/internal/raster"
)

func gradient(width, height int) *raster.Raster {
	r := raster.New(width, height)
	for i := range r.Pix {
		r.Pix[i] = uint8((i * 7) % 256)
	}
	return r
}

func TestInject_ZeroAmountIsIdentity(t *testing.T) {
	src := gradient(32, 24)
	out, err := NewInjector().Inject(src, Config{Amount: 0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.ToRaster().Equal(src) {
		t.Error("Expected p=0 output to equal input after round trip")
	}
}

func TestInject_FullAmountSaturatesEveryChannel(t *testing.T) {
	src := gradient(20, 20)
	out, err := NewInjector().Inject(src, Config{Amount: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var salt, pepper int
	for i, v := range out.Pix {
		switch v {
		case 0:
			pepper++
		case 1:
			salt++
		default:
			t.Fatalf("Expected extreme value at %d, got %f", i, v)
		}
	}
	if salt == 0 || pepper == 0 {
		t.Errorf("Expected both salt and pepper, got salt=%d pepper=%d", salt, pepper)
	}
}

func TestInject_PreservesShape(t *testing.T) {
	src := gradient(13, 7)
	out, err := NewInjector().Inject(src, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Width != 13 || out.Height != 7 || len(out.Pix) != len(src.Pix) {
		t.Errorf("Expected shape 13x7x3, got %dx%d (%d values)", out.Width, out.Height, len(out.Pix))
	}
}

func TestInject_DoesNotMutateInput(t *testing.T) {
	src := raster.Filled(8, 8, color.RGBA{R: 128, G: 128, B: 128})
	before := src.Clone()
	if _, err := NewInjector().Inject(src, Config{Amount: 1}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !src.Equal(before) {
		t.Error("Expected input raster to be unchanged")
	}
}

func TestInject_SeedIsReproducible(t *testing.T) {
	src := gradient(40, 40)
	cfg := Config{Amount: 0.1}.WithSeed(42)

	a, _ := NewInjector().Inject(src, cfg)
	b, _ := NewInjector().Inject(src, cfg)
	if !a.ToRaster().Equal(b.ToRaster()) {
		t.Error("Expected identical output for identical seeds")
	}
}

func TestInject_AmountApproximatesFraction(t *testing.T) {
	src := raster.Filled(200, 200, color.RGBA{R: 128, G: 128, B: 128})
	out, _ := NewInjector().Inject(src, Config{Amount: 0.2}.WithSeed(7))

	var flipped int
	for _, v := range out.Pix {
		if v == 0 || v == 1 {
			flipped++
		}
	}
	frac := float64(flipped) / float64(len(out.Pix))
	if math.Abs(frac-0.2) > 0.01 {
		t.Errorf("Expected roughly 20%% corrupted channels, got %.3f", frac)
	}
}

func TestInject_RejectsOutOfRangeAmount(t *testing.T) {
	for _, amount := range []float64{-0.1, 1.5} {
		if _, err := NewInjector().Inject(gradient(2, 2), Config{Amount: amount}); err == nil {
			t.Errorf("Expected error for amount %g", amount)
		}
	}
}
