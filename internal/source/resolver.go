package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-image-denoise/internal/storage"
	"go-image-denoise/pkg/validation"
)

var (
	// ErrUnsupportedSource is returned for unknown or disabled source modes.
	ErrUnsupportedSource = errors.New("unsupported image source")
	// ErrFetchFailed wraps failures of the remote image fetcher.
	ErrFetchFailed = errors.New("image fetch failed")
)

// Mode selects where the image comes from.
type Mode string

const (
	ModeAuto    Mode = ""
	ModeUpload  Mode = "upload"
	ModeExample Mode = "example"
	ModeURL     Mode = "url"
)

// ParseMode accepts upload, example, url or the empty string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeUpload, ModeExample, ModeURL:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedSource, s)
	}
}

// Selection is the user's choice of image.
type Selection struct {
	Mode       Mode
	Upload     []byte
	UploadName string
	Example    string
	URL        string
}

// Image is a resolved source raster.
type Image struct {
	*Decoded
	Mode  Mode
	Label string
}

// Resolver turns a Selection into a raster.
type Resolver struct {
	catalog      *Catalog
	assets       storage.AssetStore
	fetcher      storage.ImageFetcher
	urlValidator *validation.URLValidator
	limits       Limits
}

// NewResolver wires the catalog and backends. fetcher may be nil, which
// disables the URL source.
func NewResolver(catalog *Catalog, assets storage.AssetStore, fetcher storage.ImageFetcher, limits Limits) *Resolver {
	return &Resolver{
		catalog:      catalog,
		assets:       assets,
		fetcher:      fetcher,
		urlValidator: validation.NewURLValidator(),
		limits:       limits,
	}
}

// Catalog exposes the example list.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve loads the selected image. With ModeAuto the first non-empty of
// upload, URL and example wins. In ModeUpload an empty upload yields
// ErrNoImage even if an example key is present.
func (r *Resolver) Resolve(ctx context.Context, sel Selection) (*Image, error) {
	mode := sel.Mode
	if mode == ModeAuto {
		switch {
		case len(sel.Upload) > 0:
			mode = ModeUpload
		case strings.TrimSpace(sel.URL) != "":
			mode = ModeURL
		case strings.TrimSpace(sel.Example) != "":
			mode = ModeExample
		default:
			return nil, ErrNoImage
		}
	}

	switch mode {
	case ModeUpload:
		return r.fromUpload(sel)
	case ModeExample:
		return r.fromExample(ctx, sel.Example)
	case ModeURL:
		return r.fromURL(ctx, sel.URL)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSource, mode)
	}
}

func (r *Resolver) fromUpload(sel Selection) (*Image, error) {
	if len(sel.Upload) == 0 {
		return nil, ErrNoImage
	}
	dec, err := Decode(sel.Upload, r.limits)
	if err != nil {
		return nil, err
	}
	label := sel.UploadName
	if label == "" {
		label = "upload"
	}
	return &Image{Decoded: dec, Mode: ModeUpload, Label: label}, nil
}

func (r *Resolver) fromExample(ctx context.Context, key string) (*Image, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNoImage
	}
	ex, err := r.catalog.Lookup(key)
	if err != nil {
		return nil, err
	}
	data, err := r.assets.ReadAsset(ctx, ex.Path)
	if err != nil {
		return nil, fmt.Errorf("load example %s from %s: %w", ex.Key, r.assets.Name(), err)
	}
	dec, err := Decode(data, r.limits)
	if err != nil {
		// A bundled asset that fails to decode is a deployment fault.
		if errors.Is(err, ErrNoImage) {
			err = fmt.Errorf("%w: example %s is empty", ErrUnreadableImage, ex.Key)
		}
		return nil, err
	}
	return &Image{Decoded: dec, Mode: ModeExample, Label: ex.Label}, nil
}

func (r *Resolver) fromURL(ctx context.Context, imageURL string) (*Image, error) {
	if r.fetcher == nil {
		return nil, fmt.Errorf("%w: url source is disabled", ErrUnsupportedSource)
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, ErrNoImage
	}
	if err := r.urlValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	data, err := r.fetcher.FetchImage(ctx, strings.TrimSpace(imageURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	dec, err := Decode(data, r.limits)
	if err != nil {
		return nil, err
	}
	return &Image{Decoded: dec, Mode: ModeURL, Label: imageURL}, nil
}
