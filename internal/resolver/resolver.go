package resolver

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/dag"
	"github.com/vk/assetgraph/internal/scan"
	"github.com/vk/assetgraph/internal/srcfs"
)

// schemeRE matches references that carry a URL scheme (http:, data:, ...).
var schemeRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Resolver builds dependency graphs from a source filesystem.
type Resolver struct {
	fs       billy.Filesystem
	settings config.Resolve
	copies   []*config.CopySpec
}

// New creates a resolver reading from fsys.
func New(fsys billy.Filesystem, settings config.Resolve, copies []*config.CopySpec) *Resolver {
	return &Resolver{fs: fsys, settings: settings, copies: copies}
}

type edge struct {
	from, to string
}

// Resolve walks the graph reachable from entries and adds the files named
// by the copy specs. It fails with *MissingAssetError when a reference
// cannot be resolved and with *dag.CyclicDependencyError when assets
// reference each other in a loop.
func (r *Resolver) Resolve(ctx context.Context, entries []string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving dependency graph.", "entries", len(entries), "copies", len(r.copies))

	g := &Graph{DAG: dag.New(), Assets: make(map[string]*asset.Asset)}
	var edges []edge

	var queue []string
	for _, e := range entries {
		p, err := srcfs.Clean(e)
		if err != nil {
			return nil, &MissingAssetError{Reference: e, Err: err}
		}
		ok, err := srcfs.IsFile(r.fs, p)
		if err != nil {
			return nil, &MissingAssetError{Reference: e, Err: err}
		}
		if !ok {
			return nil, &MissingAssetError{Reference: e}
		}
		g.Entries = append(g.Entries, p)
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := queue[0]
		queue = queue[1:]
		if _, seen := g.Assets[p]; seen {
			continue
		}

		data, err := srcfs.ReadFile(r.fs, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		a := asset.New(p, data)
		g.Assets[p] = a
		g.DAG.AddNode(p)

		scanFn := scan.For(a.Kind)
		if scanFn == nil {
			continue
		}
		refs, err := scanFn(data)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
		for _, ref := range refs {
			target, external, err := r.resolveRef(p, a.Kind, ref)
			if err != nil {
				return nil, err
			}
			if external {
				continue
			}
			if target == p {
				return nil, &dag.CyclicDependencyError{Cycle: []string{p, p}}
			}
			a.Refs[ref] = target
			edges = append(edges, edge{from: target, to: p})
			queue = append(queue, target)
		}
		logger.Debug("Asset scanned.", "asset", p, "kind", a.Kind, "refs", len(a.Refs))
	}

	for _, e := range edges {
		if err := g.DAG.AddEdge(e.from, e.to); err != nil {
			return nil, err
		}
	}
	if err := g.DAG.DetectCycles(); err != nil {
		return nil, err
	}

	if err := r.addCopies(ctx, g); err != nil {
		return nil, err
	}

	logger.Debug("Dependency graph resolved.", "assets", g.DAG.Len(), "edges", len(edges))
	return g, nil
}

// resolveRef maps a reference written in from to an asset path. external
// is true for references that point outside the build.
func (r *Resolver) resolveRef(from string, kind asset.Kind, ref string) (target string, external bool, err error) {
	if strings.HasPrefix(ref, "//") || schemeRE.MatchString(ref) {
		return "", true, nil
	}
	spec := ref
	if i := strings.IndexAny(spec, "?#"); i >= 0 {
		spec = spec[:i]
	}
	if spec == "" {
		return "", true, nil
	}

	missing := func(err error) (string, bool, error) {
		return "", false, &MissingAssetError{Referrer: from, Reference: ref, Err: err}
	}

	var candidates []string
	switch {
	case strings.HasPrefix(spec, "~"):
		candidates = r.searchCandidates(strings.TrimPrefix(spec, "~"))
	case strings.HasPrefix(spec, "/"):
		candidates = []string{spec}
	case kind == asset.KindScript && !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../"):
		candidates = r.searchCandidates(spec)
	default:
		candidates = []string{path.Join(path.Dir(from), spec)}
	}

	for _, c := range candidates {
		cleaned, err := srcfs.Clean(c)
		if err != nil {
			return missing(err)
		}
		found, err := r.probe(cleaned)
		if err != nil {
			return missing(err)
		}
		if found != "" {
			return found, false, nil
		}
	}
	return missing(nil)
}

// searchCandidates lists where a bare specifier may live.
func (r *Resolver) searchCandidates(spec string) []string {
	if len(r.settings.SearchPaths) == 0 {
		return []string{spec}
	}
	out := make([]string, 0, len(r.settings.SearchPaths))
	for _, sp := range r.settings.SearchPaths {
		out = append(out, path.Join(sp, spec))
	}
	return out
}

// probe finds the file a cleaned path refers to: the path itself, the path
// with one of the configured extensions, or an index file inside it.
func (r *Resolver) probe(p string) (string, error) {
	ok, err := srcfs.IsFile(r.fs, p)
	if err != nil || ok {
		return ifFound(p, ok), err
	}
	for _, ext := range r.settings.Extensions {
		ok, err := srcfs.IsFile(r.fs, p+ext)
		if err != nil || ok {
			return ifFound(p+ext, ok), err
		}
	}
	isDir, err := srcfs.IsDir(r.fs, p)
	if err != nil || !isDir {
		return "", err
	}
	for _, ext := range r.settings.Extensions {
		idx := path.Join(p, "index"+ext)
		ok, err := srcfs.IsFile(r.fs, idx)
		if err != nil || ok {
			return ifFound(idx, ok), err
		}
	}
	return "", nil
}

func ifFound(p string, ok bool) string {
	if ok {
		return p
	}
	return ""
}

// addCopies adds the files named by copy specs as verbatim root assets.
// A file that is already part of the graph keeps its scanned form.
func (r *Resolver) addCopies(ctx context.Context, g *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, spec := range r.copies {
		from, err := srcfs.Clean(spec.From)
		if err != nil {
			return &MissingAssetError{Referrer: "copy", Reference: spec.From, Err: err}
		}
		files, err := r.copyFiles(from, spec)
		if err != nil {
			return err
		}
		for _, f := range files {
			if g.DAG.Has(f.src) {
				logger.Warn("Copy source is already part of the graph, skipping.", "asset", f.src)
				continue
			}
			data, err := srcfs.ReadFile(r.fs, f.src)
			if err != nil {
				return fmt.Errorf("reading %s: %w", f.src, err)
			}
			a := asset.New(f.src, data)
			a.OutPath = f.out
			a.Verbatim = true
			g.Assets[f.src] = a
			g.DAG.AddNode(f.src)
		}
		logger.Debug("Copy spec expanded.", "from", from, "to", spec.To, "files", len(files))
	}
	return nil
}

type copyFile struct {
	src, out string
}

func (r *Resolver) copyFiles(from string, spec *config.CopySpec) ([]copyFile, error) {
	isDir, err := srcfs.IsDir(r.fs, from)
	if err != nil {
		return nil, &MissingAssetError{Referrer: "copy", Reference: spec.From, Err: err}
	}
	if !isDir {
		ok, err := srcfs.IsFile(r.fs, from)
		if err != nil || !ok {
			return nil, &MissingAssetError{Referrer: "copy", Reference: spec.From, Err: err}
		}
		return []copyFile{{src: from, out: path.Join(spec.To, path.Base(from))}}, nil
	}

	files, err := srcfs.Files(r.fs, from)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", from, err)
	}
	out := make([]copyFile, 0, len(files))
	for _, f := range files {
		rel := strings.TrimPrefix(f, from+"/")
		if from == "." {
			rel = f
		}
		out = append(out, copyFile{src: f, out: path.Join(spec.To, rel)})
	}
	return out, nil
}
