package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// ErrAssetNotFound is returned when a named asset does not exist in the store.
var ErrAssetNotFound = errors.New("asset not found")

// AssetStore serves the raw bytes of bundled example images.
type AssetStore interface {
	ReadAsset(ctx context.Context, name string) ([]byte, error)
	// Name identifies the backend in logs.
	Name() string
}

// ImageFetcher downloads raw image bytes from a remote URL.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// readLimited reads at most limit bytes and fails if the stream is longer.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %s", humanize.IBytes(uint64(limit)))
	}
	return data, nil
}
