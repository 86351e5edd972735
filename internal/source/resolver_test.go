package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	apperrors "go-image-denoise/internal/errors"
	"go-image-denoise/internal/storage"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type memoryAssets map[string][]byte

func (m memoryAssets) Name() string { return "memory" }

func (m memoryAssets) ReadAsset(ctx context.Context, name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrAssetNotFound, name)
	}
	return data, nil
}

type stubFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *stubFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func newTestResolver(t *testing.T, fetcher storage.ImageFetcher) *Resolver {
	assets := memoryAssets{
		"IFCells.png":    encodePNG(t, 6, 4, color.RGBA{R: 0, G: 200, B: 0, A: 255}),
		"BloodSmear.png": encodePNG(t, 5, 5, color.RGBA{R: 200, G: 60, B: 90, A: 255}),
	}
	return NewResolver(DefaultCatalog(), assets, fetcher, Limits{})
}

func TestResolve_Example(t *testing.T) {
	r := newTestResolver(t, nil)

	img, err := r.Resolve(context.Background(), Selection{Mode: ModeExample, Example: "bloodsmear"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Label != "Brightfield (BloodSmear)" || img.Mode != ModeExample {
		t.Errorf("Unexpected image metadata: %s %s", img.Label, img.Mode)
	}
	if img.Raster.Width != 5 || img.Raster.Height != 5 {
		t.Errorf("Expected 5x5 raster, got %s", img.Raster)
	}
	if img.Format != "png" || img.MIME != "image/png" {
		t.Errorf("Expected png, got %s %s", img.Format, img.MIME)
	}
	if got := img.Raster.At(0, 0); got.R != 200 || got.G != 60 || got.B != 90 {
		t.Errorf("Unexpected pixel %+v", got)
	}
}

func TestResolve_ExampleByLabel(t *testing.T) {
	r := newTestResolver(t, nil)
	img, err := r.Resolve(context.Background(), Selection{Example: "Fluorescence (IFCells)"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Raster.Width != 6 {
		t.Errorf("Expected the IFCells asset, got %s", img.Raster)
	}
}

func TestResolve_UnknownExampleSuggests(t *testing.T) {
	r := newTestResolver(t, nil)
	_, err := r.Resolve(context.Background(), Selection{Mode: ModeExample, Example: "ifcell"})
	if !errors.Is(err, ErrUnknownExample) {
		t.Fatalf("Expected ErrUnknownExample, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "ifcells"`) {
		t.Errorf("Expected suggestion in %q", err.Error())
	}

	_, err = r.Resolve(context.Background(), Selection{Mode: ModeExample, Example: "xyzzy-unrelated"})
	if !errors.Is(err, ErrUnknownExample) || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Expected no suggestion for distant key, got %v", err)
	}
}

func TestResolve_MissingAsset(t *testing.T) {
	r := NewResolver(DefaultCatalog(), memoryAssets{}, nil, Limits{})
	_, err := r.Resolve(context.Background(), Selection{Example: "ifcells"})
	if !errors.Is(err, storage.ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound, got %v", err)
	}
}

func TestResolve_Upload(t *testing.T) {
	r := newTestResolver(t, nil)
	data := encodePNG(t, 3, 7, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	img, err := r.Resolve(context.Background(), Selection{Upload: data, UploadName: "mine.png", Example: "ifcells"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Mode != ModeUpload || img.Label != "mine.png" {
		t.Errorf("Expected upload to win in auto mode, got %s %s", img.Mode, img.Label)
	}
	if img.Raster.Width != 3 || img.Raster.Height != 7 {
		t.Errorf("Expected 3x7, got %s", img.Raster)
	}
}

func TestResolve_UploadJPEG(t *testing.T) {
	r := newTestResolver(t, nil)
	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}

	img, err := r.Resolve(context.Background(), Selection{Mode: ModeUpload, Upload: buf.Bytes()})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Format != "jpeg" || img.Label != "upload" {
		t.Errorf("Expected jpeg upload, got %s %s", img.Format, img.Label)
	}
}

func TestResolve_NoImage(t *testing.T) {
	r := newTestResolver(t, nil)
	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "nothing selected", sel: Selection{}},
		{name: "upload mode without file", sel: Selection{Mode: ModeUpload, Example: "ifcells"}},
		{name: "example mode without key", sel: Selection{Mode: ModeExample}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.sel)
			if !errors.Is(err, ErrNoImage) {
				t.Errorf("Expected ErrNoImage, got %v", err)
			}
		})
	}
}

func TestResolve_CorruptedUpload(t *testing.T) {
	r := newTestResolver(t, nil)
	tests := map[string][]byte{
		"text":          []byte("this is definitely not an image"),
		"truncated png": encodePNG(t, 4, 4, color.RGBA{A: 255})[:30],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), Selection{Mode: ModeUpload, Upload: data})
			if !errors.Is(err, ErrUnreadableImage) {
				t.Errorf("Expected ErrUnreadableImage, got %v", err)
			}
		})
	}
}

func TestResolve_URL(t *testing.T) {
	fetcher := &stubFetcher{data: encodePNG(t, 2, 2, color.RGBA{R: 9, A: 255})}
	r := newTestResolver(t, fetcher)

	img, err := r.Resolve(context.Background(), Selection{URL: "https://example.com/a.png"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Mode != ModeURL || fetcher.calls != 1 {
		t.Errorf("Expected one fetch in URL mode, got mode=%s calls=%d", img.Mode, fetcher.calls)
	}
}

func TestResolve_URLValidation(t *testing.T) {
	fetcher := &stubFetcher{}
	r := newTestResolver(t, fetcher)

	_, err := r.Resolve(context.Background(), Selection{Mode: ModeURL, URL: "ftp://example.com/a.png"})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Error("Expected no fetch for invalid URL")
	}
}

func TestResolve_URLDisabled(t *testing.T) {
	r := newTestResolver(t, nil)
	_, err := r.Resolve(context.Background(), Selection{Mode: ModeURL, URL: "https://example.com/a.png"})
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Expected ErrUnsupportedSource, got %v", err)
	}
}

func TestResolve_URLFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: context.DeadlineExceeded}
	r := newTestResolver(t, fetcher)
	_, err := r.Resolve(context.Background(), Selection{Mode: ModeURL, URL: "https://example.com/a.png"})
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected wrapped fetch failure, got %v", err)
	}
}

func TestDecode_Downscales(t *testing.T) {
	data := encodePNG(t, 400, 100, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	dec, err := Decode(data, Limits{MaxDimension: 200})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dec.Raster.Width != 200 || dec.Raster.Height != 50 {
		t.Errorf("Expected 200x50, got %s", dec.Raster)
	}
	if !dec.Resized() || dec.SourceWidth != 400 || dec.SourceHeight != 100 {
		t.Errorf("Expected resize to be recorded, got %+v", dec)
	}

	small, _ := Decode(encodePNG(t, 10, 10, color.RGBA{A: 255}), Limits{MaxDimension: 200})
	if small.Resized() {
		t.Error("Expected small image to be left alone")
	}
}

// withPNGSize rewrites the IHDR dimensions of a PNG, leaving the pixel data alone.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	if string(out[12:16]) != "IHDR" {
		t.Fatal("Expected IHDR as first chunk")
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_PixelBudget(t *testing.T) {
	huge := withPNGSize(t, encodePNG(t, 4, 4, color.RGBA{A: 255}), 40000, 40000)

	_, err := Decode(huge, Limits{MaxDimension: 2048, MaxPixels: DefaultMaxPixels})
	if !errors.Is(err, ErrUnreadableImage) {
		t.Fatalf("Expected ErrUnreadableImage, got %v", err)
	}
	if !strings.Contains(err.Error(), "40000x40000") {
		t.Errorf("Expected dimensions in error, got %q", err.Error())
	}

	data := encodePNG(t, 10, 10, color.RGBA{R: 1, A: 255})
	if _, err := Decode(data, Limits{MaxPixels: 100}); err != nil {
		t.Errorf("Expected 10x10 to fit a 100 pixel budget, got %v", err)
	}
	if _, err := Decode(data, Limits{MaxPixels: 99}); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("Expected 10x10 to exceed a 99 pixel budget, got %v", err)
	}
}

func TestResolve_UploadOverPixelBudget(t *testing.T) {
	r := NewResolver(DefaultCatalog(), memoryAssets{}, nil, Limits{MaxPixels: 16})
	_, err := r.Resolve(context.Background(), Selection{
		Mode:   ModeUpload,
		Upload: encodePNG(t, 5, 5, color.RGBA{A: 255}),
	})
	if !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("Expected ErrUnreadableImage, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "Upload": ModeUpload, "example": ModeExample, " url ": ModeURL} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("camera"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
