// Package srcfs wraps the go-billy filesystems that hold build inputs and
// outputs. All paths passed to and returned from this package are
// slash-separated and relative to the filesystem root.
package srcfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrOutsideRoot is returned for paths that climb above the filesystem root.
var ErrOutsideRoot = errors.New("path escapes the source root")

// OS returns a filesystem rooted at dir. Paths cannot escape dir.
func OS(dir string) billy.Filesystem {
	return osfs.New(dir, osfs.WithBoundOS())
}

// Memory returns an empty in-memory filesystem that is safe for concurrent
// use.
func Memory() billy.Filesystem {
	return Synchronized(memfs.New())
}

// Clean normalizes a slash-separated path relative to the root.
func Clean(p string) (string, error) {
	c := path.Clean(strings.TrimPrefix(p, "/"))
	if c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%s: %w", p, ErrOutsideRoot)
	}
	return c, nil
}

// ReadFile reads the whole file at p.
func ReadFile(fsys billy.Basic, p string) ([]byte, error) {
	return util.ReadFile(fsys, p)
}

// IsFile reports whether p exists and is a regular file.
func IsFile(fsys billy.Basic, p string) (bool, error) {
	info, err := fsys.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir reports whether p exists and is a directory.
func IsDir(fsys billy.Basic, p string) (bool, error) {
	info, err := fsys.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// WriteFileAtomic writes data to a temporary file next to p and renames it
// into place, so readers never observe a partial file.
func WriteFileAtomic(fsys billy.Filesystem, p string, data []byte) error {
	dir := path.Dir(p)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := util.TempFile(fsys, dir, "."+path.Base(p)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", p, err)
	}
	name := tmp.Name()
	if ch, ok := fsys.(billy.Chmod); ok {
		ch.Chmod(name, 0o644)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fsys.Remove(name)
		return fmt.Errorf("writing %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(name)
		return fmt.Errorf("closing %s: %w", p, err)
	}
	if err := fsys.Rename(name, p); err != nil {
		fsys.Remove(name)
		return fmt.Errorf("renaming into %s: %w", p, err)
	}
	return nil
}

// Files returns every regular file below root, sorted, as paths relative to
// the filesystem root.
func Files(fsys billy.Filesystem, root string) ([]string, error) {
	var out []string
	err := util.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			out = append(out, strings.TrimPrefix(filepath.ToSlash(p), "/"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}
