package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/rules"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// StageInput is everything a stage sees when it runs for one asset.
type StageInput struct {
	// Artifact is the output of the previous stage, or the source content
	// for the first stage.
	Artifact *asset.Artifact
	// Source is the asset being built. It must not be modified.
	Source  *asset.Asset
	Options config.Options
	// Deps holds the final artifacts of the asset's direct dependencies,
	// keyed by dependency asset path.
	Deps map[string]*asset.Artifact
	Mode rules.Mode
}

// Dep returns the built artifact for a reference as written in the source.
func (in *StageInput) Dep(ref string) (*asset.Artifact, bool) {
	target, ok := in.Source.Refs[ref]
	if !ok {
		return nil, false
	}
	a, ok := in.Deps[target]
	return a, ok
}

// StageFunc transforms an artifact. It returns a new artifact and never
// mutates its input.
type StageFunc func(ctx context.Context, in *StageInput) (*asset.Artifact, error)

// RegisteredStage holds the compiled Go parts of a stage.
type RegisteredStage struct {
	Description string
	// Options declares every accepted option and its type.
	// cty.DynamicPseudoType accepts any value.
	Options map[string]cty.Type
	Fn      StageFunc
	// KeyInputs, when set, lists the values outside the artifact and the
	// options that Fn reads, such as environment variables. They are part
	// of the cache key. Artifact is nil when it is called.
	KeyInputs func(in *StageInput) ([]string, error)
}

// Registry holds all the registered stages for a single application instance.
type Registry struct {
	StageRegistry map[string]*RegisteredStage
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		StageRegistry: make(map[string]*RegisteredStage),
	}
}

// RegisterStage registers a stage under name.
func (r *Registry) RegisterStage(name string, stage *RegisteredStage) {
	if _, exists := r.StageRegistry[name]; exists {
		panic(fmt.Sprintf("stage with name '%s' already registered", name))
	}
	slog.Debug("Registering stage.", "name", name)
	r.StageRegistry[name] = stage
}

// Stage looks up a stage by name.
func (r *Registry) Stage(name string) (*RegisteredStage, bool) {
	s, ok := r.StageRegistry[name]
	return s, ok
}

// Names returns the registered stage names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.StageRegistry))
	for name := range r.StageRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
