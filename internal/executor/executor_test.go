package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/dag"
	"github.com/vk/assetgraph/internal/inmemorystore"
	"github.com/vk/assetgraph/internal/nodestore"
)

// diamond builds: app.js -> {a.js, b.js} -> lib.js
func diamond(t *testing.T) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, id := range []string{"app.js", "a.js", "b.js", "lib.js"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a.js", "app.js"))
	require.NoError(t, g.AddEdge("b.js", "app.js"))
	require.NoError(t, g.AddEdge("lib.js", "a.js"))
	require.NoError(t, g.AddEdge("lib.js", "b.js"))
	return g
}

func TestRun_OrderAndDeps(t *testing.T) {
	// Arrange
	g := diamond(t)
	store := inmemorystore.New()

	var mu sync.Mutex
	var order []string
	seenDeps := map[string][]string{}
	task := func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, id)
		for depID, out := range deps {
			require.NotNil(t, out)
			seenDeps[id] = append(seenDeps[id], depID)
		}
		return &asset.Artifact{Path: id, Data: []byte(id)}, nil
	}

	// Act
	err := New(g, store, 4, task).Run(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, order, 4)
	assert.Equal(t, "lib.js", order[0])
	assert.Equal(t, "app.js", order[3])
	assert.ElementsMatch(t, []string{"a.js", "b.js"}, seenDeps["app.js"])
	for _, id := range g.Nodes() {
		status, _ := store.GetStatus(context.Background(), id)
		assert.Equal(t, nodestore.StatusCompleted, status, id)
		out, _ := store.GetOutput(context.Background(), id)
		assert.Equal(t, id, out.Path)
	}
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	// Arrange
	g := diamond(t)
	g.AddNode("other.js")
	store := inmemorystore.New()
	boom := errors.New("boom")
	task := func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		if id == "a.js" {
			return nil, boom
		}
		return &asset.Artifact{Path: id}, nil
	}

	// Act
	err := New(g, store, 1, task).Run(context.Background())

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a.js")

	ctx := context.Background()
	status, _ := store.GetStatus(ctx, "a.js")
	assert.Equal(t, nodestore.StatusFailed, status)
	status, _ = store.GetStatus(ctx, "app.js")
	assert.Equal(t, nodestore.StatusSkipped, status)
	skipErr, _ := store.GetError(ctx, "app.js")
	assert.ErrorIs(t, skipErr, ErrSkipped)
	status, _ = store.GetStatus(ctx, "lib.js")
	assert.Equal(t, nodestore.StatusCompleted, status)
}

func TestRun_RootCauseIsDeterministic(t *testing.T) {
	// Arrange
	g := dag.New()
	g.AddNode("x.css")
	g.AddNode("y.css")
	task := func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		return nil, errors.New("failed " + id)
	}

	// Act
	err := New(g, inmemorystore.New(), 2, task).Run(context.Background())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed x.css")
}

func TestRun_ContextDeadline(t *testing.T) {
	// Arrange
	g := diamond(t)
	store := inmemorystore.New()
	task := func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		if id == "lib.js" {
			return &asset.Artifact{Path: id}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Act
	err := New(g, store, 2, task).Run(ctx)

	// Assert
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	status, _ := store.GetStatus(context.Background(), "lib.js")
	assert.Equal(t, nodestore.StatusCompleted, status)
	for _, id := range []string{"a.js", "b.js", "app.js"} {
		status, _ := store.GetStatus(context.Background(), id)
		assert.Equal(t, nodestore.StatusSkipped, status, id)
	}
}

func TestRun_ParallelBranches(t *testing.T) {
	// Arrange
	g := dag.New()
	for _, id := range []string{"1.png", "2.png", "3.png", "4.png"} {
		g.AddNode(id)
	}
	var running, peak atomic.Int32
	task := func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return &asset.Artifact{Path: id}, nil
	}

	// Act
	err := New(g, inmemorystore.New(), 4, task).Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRun_EmptyGraph(t *testing.T) {
	err := New(dag.New(), inmemorystore.New(), 0, nil).Run(context.Background())
	assert.NoError(t, err)
}
