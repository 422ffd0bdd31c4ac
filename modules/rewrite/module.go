// Package rewrite provides the "rewrite_refs" stage. When a dependency was
// emitted under a new output path (for example by content_hash_name), every
// reference to it is rewritten to point at the new path.
package rewrite

import (
	"bytes"
	"context"
	"path"
	"slices"
	"strings"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// delimiters surround a reference in markup, styles and scripts.
var delimiters = [][2]string{{`"`, `"`}, {`'`, `'`}, {"(", ")"}, {"`", "`"}}

// OnRewriteRefs is the handler for the 'rewrite_refs' stage.
func OnRewriteRefs(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	refs := make([]string, 0, len(in.Source.Refs))
	for ref := range in.Source.Refs {
		refs = append(refs, ref)
	}
	// Longest first, so that "a.css" never clobbers part of "a.css?v=1".
	slices.SortFunc(refs, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	data := in.Artifact.Data
	for _, ref := range refs {
		target := in.Source.Refs[ref]
		dep, ok := in.Deps[target]
		if !ok || dep.Path == target {
			continue
		}
		replacement := Relink(ref, in.Artifact.Path, dep.Path)
		logger.Debug("Rewriting reference.", "from", ref, "to", replacement)
		for _, d := range delimiters {
			data = bytes.ReplaceAll(data, []byte(d[0]+ref+d[1]), []byte(d[0]+replacement+d[1]))
		}
	}
	return in.Artifact.WithData(data), nil
}

// Relink returns the reference that reaches target from an artifact written
// at from, in the same style as ref: root-relative references stay
// root-relative, and the query or fragment of ref is kept.
func Relink(ref, from, target string) string {
	suffix := ""
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		suffix = ref[i:]
	}
	if strings.HasPrefix(ref, "/") {
		return "/" + target + suffix
	}

	fromDir := strings.Split(path.Dir(from), "/")
	if fromDir[0] == "." {
		fromDir = nil
	}
	parts := strings.Split(target, "/")
	common := 0
	for common < len(fromDir) && common < len(parts)-1 && fromDir[common] == parts[common] {
		common++
	}
	rel := strings.Repeat("../", len(fromDir)-common) + strings.Join(parts[common:], "/")
	if strings.HasPrefix(ref, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel + suffix
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("rewrite_refs", &registry.RegisteredStage{
		Description: "Points references at the output paths of renamed dependencies.",
		Options:     map[string]cty.Type{},
		Fn:          OnRewriteRefs,
	})
}
