package validation

import (
	"fmt"
	"math"

	"go-image-denoise/internal/denoise"
	apperrors "go-image-denoise/internal/errors"
	"go-image-denoise/internal/noise"
)

// ValidateNoiseAmount enforces the slider range [0, 0.2].
func ValidateNoiseAmount(amount float64) error {
	if math.IsNaN(amount) || amount < noise.MinAmount || amount > noise.MaxAmount {
		return apperrors.NewValidationError(
			fmt.Sprintf("noise amount must be between %.2f and %.2f", noise.MinAmount, noise.MaxAmount), nil)
	}
	return nil
}

// ValidateFilter checks the filter kind and the strength range for that kind.
func ValidateFilter(cfg denoise.Config) error {
	if math.IsNaN(cfg.Sigma) {
		return apperrors.NewValidationError("sigma must be a number", nil)
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return nil
}
