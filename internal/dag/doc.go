// Package dag holds the asset dependency graph. Nodes are asset paths; an
// edge from A to B means B depends on A, so A has to be built first.
//
// Every accessor that returns a set of node IDs returns it sorted, so that
// anything derived from a graph is deterministic regardless of insertion
// order.
package dag
