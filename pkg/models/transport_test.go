package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestFinitePtr(t *testing.T) {
	if FinitePtr(math.Inf(1)) != nil || FinitePtr(math.NaN()) != nil {
		t.Error("Expected nil for non-finite values")
	}
	if p := FinitePtr(31.5); p == nil || *p != 31.5 {
		t.Errorf("Expected pointer to 31.5, got %v", p)
	}
}

func TestQuality_IdenticalPanelEncodesNull(t *testing.T) {
	data, err := json.Marshal(Quality{MSE: 0, PSNR: FinitePtr(math.Inf(1))})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"psnr":null`) {
		t.Errorf("Expected null psnr, got %s", data)
	}
}
