// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. State lives for a single build.
package inmemorystore
