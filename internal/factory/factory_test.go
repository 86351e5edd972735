package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-image-denoise/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AssetsDir:          t.TempDir(),
		AssetStorage:       config.AssetStorageLocal,
		ImageFetchTimeout:  time.Second,
		MaxRequestBodySize: 1 << 20,
		AzureContainer:     "assets",
	}
}

func TestCreateAssetStore(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.AssetsDir, "a.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewStorageFactory(cfg)

	store, err := f.CreateAssetStore(LocalStorage)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data, err := store.ReadAsset(context.Background(), "a.png"); err != nil || string(data) != "x" {
		t.Errorf("Expected local asset, got %q %v", data, err)
	}

	if _, err := f.CreateAssetStore("ftp"); err == nil {
		t.Error("Expected error for unsupported storage type")
	}
}

func TestCreateAssetStore_AzureRequiresValidKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AzureAccount = "account"
	cfg.AzureKey = "not base64!"
	if _, err := NewStorageFactory(cfg).CreateAssetStore(AzureStorage); err == nil {
		t.Error("Expected error for malformed shared key")
	}
}

func TestCreateCatalog(t *testing.T) {
	cfg := testConfig(t)
	f := NewComponentFactory(cfg)

	c, err := f.CreateCatalog()
	if err != nil || c.Default().Key != "ifcells" {
		t.Fatalf("Expected built-in catalog, got %+v %v", c, err)
	}

	cfg.AssetCatalog = filepath.Join(cfg.AssetsDir, "catalog.yaml")
	if err := os.WriteFile(cfg.AssetCatalog, []byte("examples:\n  - {key: leaf, path: leaf.png}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = f.CreateCatalog()
	if err != nil || c.Default().Key != "leaf" {
		t.Errorf("Expected catalog file to be used, got %+v %v", c, err)
	}
}

func TestCreateResolver(t *testing.T) {
	r, err := NewComponentFactory(testConfig(t)).CreateResolver()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(r.Catalog().Examples) != 2 {
		t.Errorf("Expected built-in examples, got %d", len(r.Catalog().Examples))
	}
}
