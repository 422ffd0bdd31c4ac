package app

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/manifest"
	"github.com/vk/assetgraph/internal/notify"
	"github.com/vk/assetgraph/internal/watch"
)

// BuildStatus describes the most recent build in watch mode.
type BuildStatus struct {
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Builds     int       `json:"builds"`
	Outputs    int       `json:"outputs"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
}

// Status returns the most recent build status.
func (a *App) Status() BuildStatus {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	return a.status
}

// Watch runs an initial build and then rebuilds whenever the source tree
// changes, until ctx is canceled. Build failures are logged and reported to
// the notify server; they do not stop the loop.
func (a *App) Watch(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Watch method started.")

	var pub notify.Publisher = notify.Discard{}
	if a.config.NotifyURL != "" {
		client, err := notify.Dial(ctx, a.config.NotifyURL, notify.Options{})
		if err != nil {
			a.logger.Warn("Build notifications disabled.", "error", err)
		} else {
			pub = client
		}
	}
	defer pub.Close()

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	w, err := watch.New(ctx, watch.Config{
		BaseDir:  a.model.SourceRoot,
		Ignore:   a.watchIgnores(),
		Debounce: a.config.Debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			a.logger.Info("Sources changed, rebuilding.", "count", len(changed))
			a.rebuild(ctx, pub, changed)
			return nil
		},
	})
	if err != nil {
		return err
	}

	a.rebuild(ctx, pub, nil)
	a.logger.Info("👀 Watching for changes...", "root", a.model.SourceRoot)
	return w.Run(ctx)
}

// rebuild runs one build, records its status, logs how the outputs changed
// and publishes an event.
func (a *App) rebuild(ctx context.Context, pub notify.Publisher, changed []string) {
	logger := ctxlog.FromContext(ctx)

	start := time.Now()
	res, err := a.Build(ctx)
	elapsed := time.Since(start)

	a.statusMu.Lock()
	prev := a.lastManifest
	a.status.Builds++
	a.status.FinishedAt = time.Now()
	a.status.Duration = elapsed.Round(time.Millisecond).String()
	a.status.OK = err == nil
	a.status.Error = ""
	if err != nil {
		a.status.Error = err.Error()
	} else {
		a.status.Outputs = res.Manifest.Len()
		a.lastManifest = res.Manifest
	}
	a.statusMu.Unlock()

	ev := &notify.Event{OK: err == nil, Changed: changed, Duration: elapsed.Round(time.Millisecond).String()}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Build failed.", "error", err)
		ev.Error = err.Error()
	} else {
		d := manifest.Compare(prev, res.Manifest)
		if d.Empty() {
			logger.Info("Build finished, outputs unchanged.", "duration", ev.Duration)
		} else {
			logger.Info("Build finished.", "duration", ev.Duration,
				"added", d.Added, "removed", d.Removed, "changed", d.Changed)
		}
		ev.Outputs = slices.Concat(d.Added, d.Changed, d.Removed)
	}

	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish build event.", "error", err)
	}
}

// watchIgnores keeps the build's own writes from triggering rebuilds.
func (a *App) watchIgnores() []string {
	var ignores []string
	for _, p := range []string{a.model.OutDir, a.cachePath()} {
		if p == "" {
			continue
		}
		rel, err := filepath.Rel(a.model.SourceRoot, p)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		ignores = append(ignores, rel, rel+"/**")
	}
	return ignores
}

func (a *App) cachePath() string {
	if a.config.CachePath == "" {
		return ""
	}
	abs, err := filepath.Abs(a.config.CachePath)
	if err != nil {
		return ""
	}
	return abs
}
