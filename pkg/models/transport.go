package models

import "math"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SourceInfo describes the image the pipeline ran on.
type SourceInfo struct {
	Mode         string `json:"mode"`
	Label        string `json:"label"`
	Format       string `json:"format"`
	MIME         string `json:"mime"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SourceWidth  int    `json:"source_width"`
	SourceHeight int    `json:"source_height"`
	Resized      bool   `json:"resized"`
}

// Panel is one captioned image of the result row.
type Panel struct {
	Caption string `json:"caption"`
	Image   string `json:"image"` // data:image/png;base64,...
}

// Quality compares a panel with the original.
type Quality struct {
	MSE float64 `json:"mse"`
	// PSNR in dB; null when the panel is identical to the original.
	PSNR      *float64 `json:"psnr"`
	Sharpness float64  `json:"sharpness"`
}

// FilterResult describes one denoising filter run.
type FilterResult struct {
	Filter           string  `json:"filter"`
	KernelSize       int     `json:"kernel_size,omitempty"`
	Sigma            float64 `json:"sigma,omitempty"`
	Quality          Quality `json:"quality"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

// DenoiseResponse is returned by /api/denoise and /api/compare.
type DenoiseResponse struct {
	RequestID         string         `json:"request_id"`
	Source            SourceInfo     `json:"source"`
	NoiseAmount       float64        `json:"noise_amount"`
	Seed              *uint64        `json:"seed,omitempty"`
	Panels            []Panel        `json:"panels"`
	OriginalSharpness float64        `json:"original_sharpness"`
	Noisy             Quality        `json:"noisy"`
	Filters           []FilterResult `json:"filters"`
	ProcessingTimeMs  int64          `json:"processing_time_ms"`
}

// Example is a catalog entry as listed by /api/examples.
type Example struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ExamplesResponse lists the bundled example images.
type ExamplesResponse struct {
	Default  string    `json:"default"`
	Examples []Example `json:"examples"`
}

// FinitePtr returns nil for infinite or NaN values, which JSON cannot encode.
func FinitePtr(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
