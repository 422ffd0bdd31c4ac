package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store using sync.Map
// for fine-grained concurrent access without global lock contention.
//
// The key space (every asset in the graph) is known before the build starts
// while values change constantly, which is the pattern sync.Map is built for.
type Store struct {
	states  sync.Map // Key: asset path, Value: nodestore.Status
	outputs sync.Map // Key: asset path, Value: *asset.Artifact
	errors  sync.Map // Key: asset path, Value: error
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the build status of a specific asset.
func (s *Store) SetStatus(ctx context.Context, id string, status nodestore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the build status of a specific asset.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id string) (nodestore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutput records the final artifact of an asset.
func (s *Store) SetOutput(ctx context.Context, id string, output *asset.Artifact) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded artifact of a completed asset.
func (s *Store) GetOutput(ctx context.Context, id string) (*asset.Artifact, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return nil, nil // If not found, the output is nil.
	}
	return output.(*asset.Artifact), nil
}

// SetError records the failure error of an asset.
func (s *Store) SetError(ctx context.Context, id string, nodeErr error) error {
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed asset.
func (s *Store) GetError(ctx context.Context, id string) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}
