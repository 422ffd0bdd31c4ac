package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/nodestore"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get status of an asset that doesn't exist yet
	status, err := s.GetStatus(ctx, "css/app.css")
	require.NoError(t, err)
	assert.Equal(t, nodestore.StatusPending, status)

	// Set status
	err = s.SetStatus(ctx, "css/app.css", nodestore.StatusRunning)
	require.NoError(t, err)

	// Get status again
	status, err = s.GetStatus(ctx, "css/app.css")
	require.NoError(t, err)
	assert.Equal(t, nodestore.StatusRunning, status)
	assert.Equal(t, "running", status.String())
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get output for an asset that doesn't exist yet should be nil
	output, err := s.GetOutput(ctx, "app.js")
	require.NoError(t, err)
	assert.Nil(t, output)

	// Set output
	expected := &asset.Artifact{Path: "app.js", Kind: asset.KindScript, Data: []byte("1")}
	err = s.SetOutput(ctx, "app.js", expected)
	require.NoError(t, err)

	// Get output
	retrieved, err := s.GetOutput(ctx, "app.js")
	require.NoError(t, err)
	assert.Same(t, expected, retrieved)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get error for an asset that doesn't exist yet should be nil
	retrievedErr, err := s.GetError(ctx, "app.js")
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	// Set error
	expectedErr := errors.New("a test error occurred")
	err = s.SetError(ctx, "app.js", expectedErr)
	require.NoError(t, err)

	// Get error
	retrievedErr, err = s.GetError(ctx, "app.js")
	require.NoError(t, err)
	require.Error(t, retrievedErr)
	assert.Equal(t, expectedErr, retrievedErr)
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)

	// Phase 1: Concurrent Writes
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("img/%d.png", i)
			s.SetStatus(ctx, id, nodestore.StatusCompleted)
			s.SetOutput(ctx, id, &asset.Artifact{Path: id, Data: []byte{byte(i)}})
			s.SetError(ctx, id, fmt.Errorf("error for asset %d", i))
		}(i)
	}

	wg.Wait()

	// Phase 2: Concurrent Reads / Verification
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("img/%d.png", i)

			status, err := s.GetStatus(ctx, id)
			assert.NoError(t, err)
			assert.Equal(t, nodestore.StatusCompleted, status, "mismatched status for asset %d", i)

			output, err := s.GetOutput(ctx, id)
			assert.NoError(t, err)
			if assert.NotNil(t, output) {
				assert.Equal(t, []byte{byte(i)}, output.Data, "mismatched output for asset %d", i)
			}

			nodeErr, err := s.GetError(ctx, id)
			assert.NoError(t, err)
			assert.EqualError(t, nodeErr, fmt.Sprintf("error for asset %d", i), "mismatched error for asset %d", i)
		}(i)
	}

	wg.Wait()
}
