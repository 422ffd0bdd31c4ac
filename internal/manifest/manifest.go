// Package manifest holds the result of a build: every output path mapped to
// the content hash of the bytes written there.
//
// A manifest is append-only while a build runs and is replaced wholesale by
// the next build. Its JSON form has sorted keys, so two builds of the same
// inputs produce byte-identical manifest files.
package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/assetgraph/internal/digest"
)

// ConflictError reports a second write to an output path.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("output path %q is produced more than once", e.Path)
}

// Manifest maps output paths to content hashes.
type Manifest struct {
	entries map[string]digest.Hash
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{entries: make(map[string]digest.Hash)}
}

// Add records an output. Paths can only be added once.
func (m *Manifest) Add(p string, h digest.Hash) error {
	if _, ok := m.entries[p]; ok {
		return &ConflictError{Path: p}
	}
	m.entries[p] = h
	return nil
}

// Get returns the hash recorded for p.
func (m *Manifest) Get(p string) (digest.Hash, bool) {
	h, ok := m.entries[p]
	return h, ok
}

// Len returns the number of outputs.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Paths returns every output path in sorted order.
func (m *Manifest) Paths() []string {
	return slices.Sorted(maps.Keys(m.entries))
}

// Entries returns a copy of the path to hash mapping.
func (m *Manifest) Entries() map[string]digest.Hash {
	return maps.Clone(m.entries)
}

// Equal reports whether both manifests hold the same outputs and hashes.
func (m *Manifest) Equal(other *Manifest) bool {
	if m == nil || other == nil {
		return m == other
	}
	return maps.Equal(m.entries, other.entries)
}

// MarshalJSON encodes the manifest as a flat object with sorted keys.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.entries)
}

// UnmarshalJSON decodes a flat path to hash object.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	entries := make(map[string]digest.Hash)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.entries = entries
	return nil
}

// Encode renders the manifest file content: indented JSON with a trailing
// newline.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses manifest file content.
func Decode(data []byte) (*Manifest, error) {
	m := New()
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}
