package resolver

import (
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/dag"
)

// Graph is the result of resolution: the dependency DAG plus every asset it
// mentions, keyed by asset path.
type Graph struct {
	DAG     *dag.Graph
	Assets  map[string]*asset.Asset
	Entries []string
}

// Asset returns the asset with the given path, or nil.
func (g *Graph) Asset(p string) *asset.Asset {
	return g.Assets[p]
}
