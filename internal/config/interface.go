package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration at path and translates it into the
	// format-agnostic model. Relative directories in the result are already
	// rebased onto the directory of path.
	Load(ctx context.Context, path string) (*Model, error)
}

// ByExtension dispatches to a Loader chosen by the file extension of the
// path being loaded.
type ByExtension map[string]Loader

// Load implements Loader.
func (b ByExtension) Load(ctx context.Context, path string) (*Model, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := b[ext]
	if !ok {
		known := make([]string, 0, len(b))
		for k := range b {
			known = append(known, k)
		}
		slices.Sort(known)
		return nil, fmt.Errorf("unsupported config format %q for %s (supported: %s)", ext, path, strings.Join(known, ", "))
	}
	return loader.Load(ctx, path)
}
