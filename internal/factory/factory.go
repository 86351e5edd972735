package factory

import (
	"fmt"

	"go-image-denoise/internal/config"
	"go-image-denoise/internal/source"
	"go-image-denoise/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.AssetStorageAzure
	// LocalStorage for local file system
	LocalStorage StorageType = config.AssetStorageLocal
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	// CreateAssetStore builds the backend serving example images.
	CreateAssetStore(storageType StorageType) (storage.AssetStore, error)
	// CreateFetcher builds the remote URL fetcher.
	CreateFetcher() storage.ImageFetcher
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateAssetStore creates an asset store based on the specified type
func (f *storageFactory) CreateAssetStore(storageType StorageType) (storage.AssetStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStorage(f.cfg.AssetsDir), nil
	case AzureStorage:
		return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer, f.cfg.MaxRequestBodySize)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

func (f *storageFactory) CreateFetcher() storage.ImageFetcher {
	return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxRequestBodySize)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	cfg            *config.Config
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(cfg),
		cfg:            cfg,
	}
}

// CreateCatalog loads ASSET_CATALOG when set and falls back to the built-in list.
func (f *ComponentFactory) CreateCatalog() (*source.Catalog, error) {
	if f.cfg.AssetCatalog == "" {
		return source.DefaultCatalog(), nil
	}
	return source.LoadCatalog(f.cfg.AssetCatalog)
}

// CreateResolver wires the catalog, the configured asset store and the fetcher.
func (f *ComponentFactory) CreateResolver() (*source.Resolver, error) {
	catalog, err := f.CreateCatalog()
	if err != nil {
		return nil, err
	}
	assets, err := f.StorageFactory.CreateAssetStore(StorageType(f.cfg.AssetStorage))
	if err != nil {
		return nil, err
	}
	limits := source.Limits{MaxDimension: f.cfg.MaxImageDimension, MaxPixels: f.cfg.MaxImagePixels}
	return source.NewResolver(catalog, assets, f.StorageFactory.CreateFetcher(), limits), nil
}
