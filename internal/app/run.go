package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/assetgraph/internal/builder"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/resolver"
	"github.com/vk/assetgraph/internal/srcfs"
)

// Run performs one build and prints a summary to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	start := time.Now()
	res, err := a.Build(ctx)
	if err != nil {
		return err
	}
	a.printSummary(res, time.Since(start))

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Build resolves the asset graph from the configured entries, builds it and
// writes the outputs. The configured timeout covers both phases. The
// cache, when enabled, is saved after every successful build.
func (a *App) Build(ctx context.Context) (*builder.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	a.logger.Debug("Resolving asset graph...", "root", a.model.SourceRoot, "entries", a.model.Entries)
	src := srcfs.OS(a.model.SourceRoot)
	graph, err := resolver.New(src, a.model.Resolve, a.model.Copies).Resolve(ctx, a.model.Entries)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Asset graph resolved.", "assets", len(graph.Assets))

	a.logger.Debug("Starting build.", "mode", a.table.Mode(), "workers", a.config.Workers)
	b := builder.New(a.registry, a.table, srcfs.OS(a.model.OutDir), builder.Options{
		Workers:      a.config.Workers,
		Cache:        a.cache,
		ManifestName: a.model.ManifestName,
	})
	res, err := b.Build(ctx, graph)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Save(ctx); err != nil {
			a.logger.Warn("Failed to save build cache.", "error", err)
		}
	}
	return res, nil
}

func (a *App) printSummary(res *builder.Result, elapsed time.Duration) {
	fmt.Fprintf(a.outW, "Built %d outputs in %s (%d transformed, %d cached, %d copied)\n",
		res.Manifest.Len(), elapsed.Round(time.Millisecond), res.Transformed, res.Cached, res.Copied)
	for _, p := range res.Manifest.Paths() {
		h, _ := res.Manifest.Get(p)
		fmt.Fprintf(a.outW, "  %s  %s\n", h.Short(12), p)
	}
}
