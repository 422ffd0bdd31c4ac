package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/vk/assetgraph/internal/cache"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/manifest"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/rules"
	"github.com/vk/assetgraph/internal/srcfs"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry
	table    *rules.Table
	cache    *cache.Cache

	statusMu     sync.Mutex
	status       BuildStatus
	lastManifest *manifest.Manifest

	httpServer *http.Server
}

// NewApp loads the pipeline config named by cfg and registers the stage
// modules. Summaries go to outW, logs to logW. With no modules the core set
// is registered; with a nil loader the format follows the file extension.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		loader = DefaultLoader()
	}
	model, err := loadModel(ctx, loader, cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(model)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "stages", reg.Names())

	if err := reg.ValidateRules(ctx, model); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	mode, err := rules.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	table, err := rules.New(model.Rules, mode)
	if err != nil {
		return nil, err
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
		table:    table,
	}

	if cfg.CachePath != "" {
		abs, err := filepath.Abs(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache path: %w", err)
		}
		size := cfg.CacheSize
		if size == 0 {
			size = cache.DefaultSize
		}
		if a.cache, err = cache.Open(ctx, srcfs.OS(filepath.Dir(abs)), filepath.Base(abs), size); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline configuration with overrides applied.
func (a *App) Model() *config.Model {
	return a.model
}
