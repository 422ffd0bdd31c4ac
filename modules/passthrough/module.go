// Package passthrough provides the "copy" stage, which emits an asset
// unchanged, optionally under another directory.
package passthrough

import (
	"context"
	"path"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnCopy is the handler for the 'copy' stage. With a "dir" option the
// artifact keeps its base name and moves below dir.
func OnCopy(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	dir, err := in.Options.String("dir", "")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return in.Artifact, nil
	}
	return in.Artifact.WithPath(path.Join(dir, path.Base(in.Artifact.Path))), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("copy", &registry.RegisteredStage{
		Description: "Emits the asset as-is.",
		Options:     map[string]cty.Type{"dir": cty.String},
		Fn:          OnCopy,
	})
}
