package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/docconfig"
	"github.com/vk/assetgraph/internal/hclconfig"
)

// ErrLoadConfig wraps every failure to read or parse the pipeline config.
var ErrLoadConfig = errors.New("failed to load configuration")

// DefaultLoader picks the pipeline config format by file extension.
func DefaultLoader() config.Loader {
	return config.ByExtension{
		".hcl":   hclconfig.NewLoader(),
		".yaml":  docconfig.NewLoader(docconfig.YAML),
		".yml":   docconfig.NewLoader(docconfig.YAML),
		".toml":  docconfig.NewLoader(docconfig.TOML),
		".json":  docconfig.NewLoader(docconfig.JSON),
		".jsonc": docconfig.NewLoader(docconfig.JSON),
	}
}

// loadModel loads the pipeline config and applies the command-line
// overrides. Override paths are relative to the working directory.
func loadModel(ctx context.Context, loader config.Loader, cfg *Config) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	model, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "file", cfg.ConfigPath)

	if len(cfg.Entries) > 0 {
		model.Entries = cfg.Entries
	}
	if cfg.SourceRoot != "" {
		if model.SourceRoot, err = filepath.Abs(cfg.SourceRoot); err != nil {
			return nil, fmt.Errorf("failed to resolve source root: %w", err)
		}
	}
	if cfg.OutDir != "" {
		if model.OutDir, err = filepath.Abs(cfg.OutDir); err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
