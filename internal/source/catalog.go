package source

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/arbovm/levenshtein"
	"gopkg.in/yaml.v3"
)

// ErrUnknownExample is returned for catalog keys that do not exist.
var ErrUnknownExample = errors.New("unknown example image")

// Example is one bundled sample image.
type Example struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	// Path is the asset name handed to the AssetStore.
	Path string `yaml:"path" json:"-"`
}

// Catalog is the ordered list of example images. The first entry is the default.
type Catalog struct {
	Examples []Example `yaml:"examples"`
}

// DefaultCatalog lists the two images shipped under assets/.
func DefaultCatalog() *Catalog {
	return &Catalog{Examples: []Example{
		{Key: "ifcells", Label: "Fluorescence (IFCells)", Path: "IFCells.png"},
		{Key: "bloodsmear", Label: "Brightfield (BloodSmear)", Path: "BloodSmear.png"},
	}}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Examples) == 0 {
		return fmt.Errorf("catalog has no examples")
	}
	seen := make(map[string]bool, len(c.Examples))
	for i := range c.Examples {
		e := &c.Examples[i]
		e.Key = strings.ToLower(strings.TrimSpace(e.Key))
		if e.Key == "" || e.Path == "" {
			return fmt.Errorf("catalog entry %d needs key and path", i)
		}
		if seen[e.Key] {
			return fmt.Errorf("duplicate catalog key %q", e.Key)
		}
		seen[e.Key] = true
		if e.Label == "" {
			e.Label = e.Key
		}
	}
	return nil
}

// Default returns the first example.
func (c *Catalog) Default() Example {
	return c.Examples[0]
}

// Lookup finds an example by key or label, case-insensitively.
func (c *Catalog) Lookup(key string) (Example, error) {
	needle := strings.ToLower(strings.TrimSpace(key))
	for _, e := range c.Examples {
		if e.Key == needle || strings.ToLower(e.Label) == needle {
			return e, nil
		}
	}
	if s := c.Suggest(needle); s != "" {
		return Example{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownExample, key, s)
	}
	return Example{}, fmt.Errorf("%w %q", ErrUnknownExample, key)
}

// Suggest returns the closest key within an edit distance of half its length,
// or "" when nothing is close.
func (c *Catalog) Suggest(key string) string {
	best, bestDist := "", -1
	for _, e := range c.Examples {
		d := levenshtein.Distance(key, e.Key)
		if d <= len(e.Key)/2 && (bestDist < 0 || d < bestDist) {
			best, bestDist = e.Key, d
		}
	}
	return best
}
