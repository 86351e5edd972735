package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type localStorage struct {
	root string
}

// NewLocalStorage serves assets from a directory on disk. Names are resolved
// relative to dir and may not escape it.
func NewLocalStorage(dir string) AssetStore {
	return &localStorage{root: filepath.Clean(dir)}
}

func (s *localStorage) Name() string { return "local:" + s.root }

func (s *localStorage) ReadAsset(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean("/" + name)
	if strings.Contains(name, "..") || clean == "/" {
		return nil, fmt.Errorf("invalid asset name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return nil, fmt.Errorf("read asset %s: %w", name, err)
	}
	return data, nil
}
