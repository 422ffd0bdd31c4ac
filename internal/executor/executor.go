// Package executor builds the nodes of a dependency graph with a pool of
// workers. A node is handed to a worker once all of its dependencies have
// completed, so leaves are built first and independent branches run in
// parallel.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/dag"
	"github.com/vk/assetgraph/internal/nodestore"
)

// ErrSkipped marks nodes that never ran because an upstream node failed or
// the build was canceled.
var ErrSkipped = errors.New("skipped")

// Task builds one node. deps holds the artifacts of the node's direct
// dependencies, keyed by node ID.
type Task func(ctx context.Context, id string, deps map[string]*asset.Artifact) (*asset.Artifact, error)

// Executor runs a Task for every node of a graph.
type Executor struct {
	graph      *dag.Graph
	store      nodestore.Store
	numWorkers int
	task       Task

	wg    sync.WaitGroup
	nodes map[string]*nodeState
}

// nodeState is the scheduling state of one node.
type nodeState struct {
	id         string
	deps       []string
	dependents []string
	depCount   atomic.Int32
	skipOnce   sync.Once
}

// New creates an executor. numWorkers below one is treated as one.
func New(graph *dag.Graph, store nodestore.Store, numWorkers int, task Task) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{
		graph:      graph,
		store:      store,
		numWorkers: numWorkers,
		task:       task,
	}
}

// Run executes the entire graph concurrently. It returns the first real
// failure (by node ID) wrapped with the list of failed nodes; if nothing
// failed but ctx ended early, it returns ctx.Err().
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	ids := e.graph.Nodes()
	e.nodes = make(map[string]*nodeState, len(ids))
	for _, id := range ids {
		deps, err := e.graph.Dependencies(id)
		if err != nil {
			return err
		}
		dependents, err := e.graph.Dependents(id)
		if err != nil {
			return err
		}
		n := &nodeState{id: id, deps: deps, dependents: dependents}
		n.depCount.Store(int32(len(deps)))
		e.nodes[id] = n
		if err := e.store.SetStatus(ctx, id, nodestore.StatusPending); err != nil {
			return err
		}
	}

	readyChan := make(chan *nodeState, len(ids))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding leaf nodes...")
	leafCount := 0
	for _, id := range ids {
		if n := e.nodes[id]; n.depCount.Load() == 0 {
			readyChan <- n
			leafCount++
		}
	}
	logger.Debug("Found all leaf nodes.", "count", leafCount)

	e.wg.Add(len(ids))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes settled.")

	var failedNodes []string
	var rootCauseError error
	for _, id := range ids {
		status, _ := e.store.GetStatus(ctx, id)
		if status != nodestore.StatusFailed {
			continue
		}
		nodeErr, _ := e.store.GetError(ctx, id)
		failedNodes = append(failedNodes, id)
		if rootCauseError == nil {
			rootCauseError = nodeErr
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("build failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return ctx.Err()
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *nodeState, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", n.id)

		if ctx.Err() != nil {
			workerLogger.Debug("Context canceled, skipping node.")
			e.skip(ctx, n, fmt.Errorf("%w: %w", ErrSkipped, ctx.Err()))
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		e.store.SetStatus(ctx, n.id, nodestore.StatusRunning)

		deps := make(map[string]*asset.Artifact, len(n.deps))
		for _, depID := range n.deps {
			out, _ := e.store.GetOutput(ctx, depID)
			deps[depID] = out
		}

		out, err := e.task(ctx, n.id, deps)
		if err != nil {
			if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				workerLogger.Debug("Node interrupted by cancellation.", "error", err)
				e.store.SetStatus(ctx, n.id, nodestore.StatusSkipped)
				e.store.SetError(ctx, n.id, fmt.Errorf("%w: %w", ErrSkipped, err))
			} else {
				workerLogger.Error("Node execution failed.", "error", err)
				e.store.SetStatus(ctx, n.id, nodestore.StatusFailed)
				e.store.SetError(ctx, n.id, err)
				cancel()
			}
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		e.store.SetOutput(ctx, n.id, out)
		e.store.SetStatus(ctx, n.id, nodestore.StatusCompleted)

		for _, depID := range n.dependents {
			dependent := e.nodes[depID]
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", depID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skip marks a node and all of its descendants as skipped.
func (e *Executor) skip(ctx context.Context, n *nodeState, reason error) {
	n.skipOnce.Do(func() {
		e.store.SetStatus(ctx, n.id, nodestore.StatusSkipped)
		e.store.SetError(ctx, n.id, reason)
		e.wg.Done()
		e.skipDependents(ctx, n)
	})
}

// skipDependents recursively marks all downstream nodes as skipped and
// decrements the WaitGroup for each.
func (e *Executor) skipDependents(ctx context.Context, n *nodeState) {
	logger := ctxlog.FromContext(ctx)
	for _, depID := range n.dependents {
		dependent := e.nodes[depID]
		logger.Debug("Skipping dependent node due to upstream failure.", "nodeID", depID, "dependency", n.id)
		e.skip(ctx, dependent, fmt.Errorf("%w due to upstream failure of '%s'", ErrSkipped, n.id))
	}
}
