// Package nodestore defines the interface for storing and retrieving the
// mutable build state of assets while a build runs.
//
// # Why Node Store Exists
//
// The node store isolates **mutable build state** (status, artifacts,
// errors) from the **immutable dependency graph** held by the dag package.
// The executor writes state as assets are built; the builder reads it to
// hand dependency artifacts to stages and to report partial state when a
// build times out.
//
// # State Transitions
//
// Assets follow this lifecycle:
//
//	Pending → Running → Completed (with artifact) OR Failed (with error)
//	Pending → Skipped (an upstream asset failed or the build was canceled)
package nodestore

import (
	"context"

	"github.com/vk/assetgraph/internal/asset"
)

// Status is the build state of one asset.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Store is the interface for managing the mutable build state of assets.
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe for concurrent reads and writes, as
// multiple workers build assets in parallel and read the artifacts of
// finished dependencies.
type Store interface {
	// SetStatus updates the build status of an asset.
	SetStatus(ctx context.Context, id string, status Status) error

	// GetStatus retrieves the current status of an asset. It returns
	// StatusPending if no status has been set yet.
	GetStatus(ctx context.Context, id string) (Status, error)

	// SetOutput records the final artifact of a completed asset.
	SetOutput(ctx context.Context, id string, output *asset.Artifact) error

	// GetOutput retrieves the artifact of a completed asset, or nil.
	GetOutput(ctx context.Context, id string) (*asset.Artifact, error)

	// SetError records why an asset failed or was skipped.
	SetError(ctx context.Context, id string, nodeErr error) error

	// GetError retrieves the recorded error of an asset, or nil.
	GetError(ctx context.Context, id string) (error, error)
}
