package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/cache"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/digest"
	"github.com/vk/assetgraph/internal/executor"
	"github.com/vk/assetgraph/internal/inmemorystore"
	"github.com/vk/assetgraph/internal/manifest"
	"github.com/vk/assetgraph/internal/nodestore"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/resolver"
	"github.com/vk/assetgraph/internal/rules"
	"github.com/vk/assetgraph/internal/srcfs"
	"golang.org/x/sync/errgroup"
)

// Options tunes a Builder.
type Options struct {
	// Workers is the number of assets transformed in parallel.
	Workers int
	// Cache, when set, is consulted before and filled after every rule run.
	Cache *cache.Cache
	// ManifestName is the manifest file name inside the output directory.
	ManifestName string
}

// Result describes a successful build.
type Result struct {
	Manifest *manifest.Manifest
	// Transformed counts assets whose stages ran, Cached the ones served
	// from the cache and Copied the ones emitted without a rule.
	Transformed int
	Cached      int
	Copied      int
}

// Builder applies rules to resolved graphs and writes the results.
type Builder struct {
	registry *registry.Registry
	table    *rules.Table
	out      billy.Filesystem
	opts     Options
}

// New creates a Builder writing into out.
func New(reg *registry.Registry, table *rules.Table, out billy.Filesystem, opts Options) *Builder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ManifestName == "" {
		opts.ManifestName = config.DefaultManifestName
	}
	return &Builder{registry: reg, table: table, out: out, opts: opts}
}

// run holds the state of one Build call.
type run struct {
	graph       *resolver.Graph
	transformed atomic.Int64
	cached      atomic.Int64
	copied      atomic.Int64
}

// Build transforms every asset of g and writes the outputs and the
// manifest. Nothing is written unless every asset succeeds.
func (b *Builder) Build(ctx context.Context, g *resolver.Graph) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	ids := g.DAG.Nodes()
	for _, id := range ids {
		if !b.table.Buildable(g.Assets[id]) {
			return nil, &UnmatchedAssetError{Path: id}
		}
	}
	logger.Debug("Every asset has a rule or is terminal.", "assets", len(ids))

	r := &run{graph: g}
	store := inmemorystore.New()
	exec := executor.New(g.DAG, store, b.opts.Workers, func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		return b.buildAsset(ctx, r, id, deps)
	})

	logger.Info("🚀 Transforming assets...", "assets", len(ids), "workers", b.opts.Workers)
	if err := exec.Run(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, partialState(ctx, store, ids, ctxErr)
			}
			return nil, fmt.Errorf("build canceled: %w", err)
		}
		return nil, err
	}

	m, outputs, err := b.join(ctx, store, ids)
	if err != nil {
		return nil, err
	}
	if err := b.write(ctx, m, outputs); err != nil {
		return nil, err
	}

	res := &Result{
		Manifest:    m,
		Transformed: int(r.transformed.Load()),
		Cached:      int(r.cached.Load()),
		Copied:      int(r.copied.Load()),
	}
	logger.Info("🏁 Build finished.", "outputs", m.Len(), "transformed", res.Transformed, "cached", res.Cached, "copied", res.Copied)
	return res, nil
}

// buildAsset produces the artifact of one asset.
func (b *Builder) buildAsset(ctx context.Context, r *run, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
	ctx = ctxlog.With(ctx, "asset", id)
	logger := ctxlog.FromContext(ctx)
	a := r.graph.Assets[id]

	candidates := b.table.Match(a.Path)
	if a.Verbatim || len(candidates) == 0 {
		logger.Debug("Emitting asset as-is.")
		r.copied.Add(1)
		return a.Artifact(), nil
	}

	var firstErr error
	for i, rule := range candidates {
		var (
			key digest.Hash
			out *asset.Artifact
			err error
			hit bool
		)
		if b.opts.Cache != nil {
			key, err = b.cacheKey(rule, a, deps)
			if err == nil {
				out, hit = b.opts.Cache.Get(key)
			}
		}
		if hit {
			logger.Debug("Cache hit.", "rule", rule.Name)
			r.cached.Add(1)
			return out, nil
		}

		if err == nil {
			out, err = b.runRule(ctx, rule, a, deps)
		}
		if err == nil {
			if b.opts.Cache != nil {
				b.opts.Cache.Put(key, out)
			}
			r.transformed.Add(1)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
		if i < len(candidates)-1 {
			logger.Warn("Rule failed, trying the next matching rule.", "rule", rule.Name, "next", candidates[i+1].Name, "error", err)
		}
	}
	return nil, firstErr
}

// runRule runs the active stages of rule in order.
func (b *Builder) runRule(ctx context.Context, rule *rules.Rule, a *asset.Asset, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
	art := a.Artifact()
	stageName := ""
	for _, ref := range rule.Stages {
		stageName = ref.Name
		stage, ok := b.registry.Stage(ref.Name)
		if !ok {
			return nil, &TransformError{Asset: a.Path, Rule: rule.Name, Stage: ref.Name, Err: errors.New("stage is not registered")}
		}
		in := &registry.StageInput{
			Artifact: art,
			Source:   a,
			Options:  ref.Options,
			Deps:     deps,
			Mode:     b.table.Mode(),
		}
		next, err := stage.Fn(ctx, in)
		if err != nil {
			return nil, &TransformError{Asset: a.Path, Rule: rule.Name, Stage: ref.Name, Err: err}
		}
		if next == nil {
			return nil, &TransformError{Asset: a.Path, Rule: rule.Name, Stage: ref.Name, Err: errors.New("stage returned no artifact")}
		}
		art = next
	}

	cleaned, err := srcfs.Clean(art.Path)
	if err != nil || cleaned == "." {
		return nil, &TransformError{Asset: a.Path, Rule: rule.Name, Stage: stageName, Err: fmt.Errorf("invalid output path %q", art.Path)}
	}
	if cleaned != art.Path {
		art = art.WithPath(cleaned)
	}
	return art, nil
}

// cacheKey digests everything a rule's output depends on: the rule itself
// (which covers the build mode), the asset's identity and bytes, the
// artifacts of its direct dependencies in path order, and the external
// inputs its stages declare.
func (b *Builder) cacheKey(rule *rules.Rule, a *asset.Asset, deps map[string]*asset.Artifact) (digest.Hash, error) {
	kb := digest.NewBuilder().
		Hash(rule.Fingerprint()).
		String(a.Path).
		String(a.OutPath).
		Hash(a.Hash)
	depIDs := make([]string, 0, len(deps))
	for id := range deps {
		depIDs = append(depIDs, id)
	}
	slices.Sort(depIDs)
	for _, id := range depIDs {
		kb.String(id).String(deps[id].Path).Hash(deps[id].Hash())
	}

	for _, ref := range rule.Stages {
		stage, ok := b.registry.Stage(ref.Name)
		if !ok || stage.KeyInputs == nil {
			continue
		}
		inputs, err := stage.KeyInputs(&registry.StageInput{
			Source:  a,
			Options: ref.Options,
			Deps:    deps,
			Mode:    b.table.Mode(),
		})
		if err != nil {
			return digest.Hash{}, &TransformError{Asset: a.Path, Rule: rule.Name, Stage: ref.Name, Err: err}
		}
		kb.String(ref.Name)
		for _, v := range inputs {
			kb.String(v)
		}
	}
	return kb.Sum(), nil
}

// join collects every artifact into a manifest.
func (b *Builder) join(ctx context.Context, store nodestore.Store, ids []string) (*manifest.Manifest, map[string]*asset.Artifact, error) {
	m := manifest.New()
	outputs := make(map[string]*asset.Artifact, len(ids))
	producers := make(map[string]string, len(ids))

	for _, id := range ids {
		art, err := store.GetOutput(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if art == nil {
			return nil, nil, fmt.Errorf("asset %q finished without an artifact", id)
		}
		if art.Path == b.opts.ManifestName {
			return nil, nil, &OutputConflictError{Path: art.Path, Assets: []string{id, "the manifest"}}
		}
		if err := m.Add(art.Path, art.Hash()); err != nil {
			var conflict *manifest.ConflictError
			if errors.As(err, &conflict) {
				return nil, nil, &OutputConflictError{Path: art.Path, Assets: []string{producers[art.Path], id}}
			}
			return nil, nil, err
		}
		producers[art.Path] = id
		outputs[art.Path] = art
	}
	return m, outputs, nil
}

// write stores every output and then the manifest.
func (b *Builder) write(ctx context.Context, m *manifest.Manifest, outputs map[string]*asset.Artifact) error {
	logger := ctxlog.FromContext(ctx)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.opts.Workers)
	for _, p := range m.Paths() {
		art := outputs[p]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := srcfs.WriteFileAtomic(b.out, p, art.Data); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			logger.Debug("Output written.", "path", p, "bytes", len(art.Data))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := srcfs.WriteFileAtomic(b.out, b.opts.ManifestName, data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	logger.Debug("Manifest written.", "path", b.opts.ManifestName, "entries", m.Len())
	return nil
}

// partialState builds the TimeoutError for an aborted build.
func partialState(ctx context.Context, store nodestore.Store, ids []string, cause error) *TimeoutError {
	e := &TimeoutError{Err: cause}
	for _, id := range ids {
		status, _ := store.GetStatus(ctx, id)
		if status == nodestore.StatusCompleted {
			e.Completed = append(e.Completed, id)
		} else {
			e.Pending = append(e.Pending, id)
		}
	}
	return e
}
