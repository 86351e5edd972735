package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Asset storage backends.
const (
	AssetStorageLocal = "local"
	AssetStorageAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	MaxImageDimension  int
	MaxImagePixels     int

	AssetsDir      string
	AssetCatalog   string
	AssetStorage   string
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	RateLimitRPS   float64
	RateLimitBurst int
	Workers        int
	LogLevel       string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// MaxRequestBodyHuman formats the body limit for messages.
func (c *Config) MaxRequestBodyHuman() string {
	return humanize.IBytes(uint64(c.MaxRequestBodySize))
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxImageDimension:  int(parseIntOrDefault("MAX_IMAGE_DIMENSION", 2048)),
		MaxImagePixels:     int(parseIntOrDefault("MAX_IMAGE_PIXELS", 64_000_000)),
		AssetsDir:          getEnvOrDefault("ASSETS_DIR", "assets"),
		AssetCatalog:       os.Getenv("ASSET_CATALOG"),
		AssetStorage:       strings.ToLower(getEnvOrDefault("ASSET_STORAGE", AssetStorageLocal)),
		AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     getEnvOrDefault("AZURE_STORAGE_CONTAINER", "assets"),
		RateLimitRPS:       parseFloatOrDefault("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     int(parseIntOrDefault("RATE_LIMIT_BURST", 20)),
		Workers:            int(parseIntOrDefault("WORKERS", 0)),
		LogLevel:           strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageDimension < 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must be >= 0 (got %d)", c.MaxImageDimension)
	}
	if c.MaxImagePixels < 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be >= 0 (got %d)", c.MaxImagePixels)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)",
			c.RequestTimeout, c.ImageFetchTimeout)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must be >= 0 (got rps=%g, burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	switch c.AssetStorage {
	case AssetStorageLocal:
		if strings.TrimSpace(c.AssetsDir) == "" {
			return fmt.Errorf("ASSETS_DIR must not be empty")
		}
	case AssetStorageAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("ASSET_STORAGE=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("invalid ASSET_STORAGE: %q (want %q or %q)", c.AssetStorage, AssetStorageLocal, AssetStorageAzure)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
