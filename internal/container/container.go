package container

import (
	"fmt"
	"net/http"

	"go-image-denoise/internal/config"
	"go-image-denoise/internal/factory"
	"go-image-denoise/internal/logger"
	"go-image-denoise/internal/metrics"
	"go-image-denoise/internal/noise"
	"go-image-denoise/internal/observer"
	"go-image-denoise/internal/service"
	"go-image-denoise/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config         *config.Config
	workerPool     *service.WorkerPool
	stats          *observer.MetricsObserver
	denoiseService service.DenoiseService
	handler        http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	components := factory.NewComponentFactory(cfg)
	resolver, err := components.CreateResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to build image source: %w", err)
	}

	stats := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(stats)

	pool := service.NewWorkerPool(cfg.Workers)
	pool.Start()

	denoiseService := service.NewDenoiseService(resolver, noise.NewInjector(), metrics.NewCalculator(), pool, events)
	handler := transport.NewHandler(denoiseService, stats, pool, cfg)

	logger.WithField("examples", len(resolver.Catalog().Examples)).
		WithField("asset_storage", cfg.AssetStorage).
		Info("Container initialised")

	return &Container{
		config:         cfg,
		workerPool:     pool,
		stats:          stats,
		denoiseService: denoiseService,
		handler:        handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the worker pool.
func (c *Container) Close() {
	c.workerPool.Close()
}
