package srcfs

import (
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// syncFS serializes metadata operations on a filesystem whose directory
// tree is not safe for concurrent use, such as memfs. File contents carry
// their own locking.
type syncFS struct {
	billy.Filesystem
	mu sync.Mutex
}

// Synchronized wraps fsys so that it may be shared between goroutines.
func Synchronized(fsys billy.Filesystem) billy.Filesystem {
	return &syncFS{Filesystem: fsys}
}

func (s *syncFS) Create(filename string) (billy.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Create(filename)
}

func (s *syncFS) Open(filename string) (billy.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Open(filename)
}

func (s *syncFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.OpenFile(filename, flag, perm)
}

func (s *syncFS) Stat(filename string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Stat(filename)
}

func (s *syncFS) Lstat(filename string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Lstat(filename)
}

func (s *syncFS) Rename(oldpath, newpath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Rename(oldpath, newpath)
}

func (s *syncFS) Remove(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.Remove(filename)
}

func (s *syncFS) ReadDir(path string) ([]os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.ReadDir(path)
}

func (s *syncFS) MkdirAll(filename string, perm os.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.MkdirAll(filename, perm)
}

func (s *syncFS) TempFile(dir, prefix string) (billy.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filesystem.TempFile(dir, prefix)
}

func (s *syncFS) Chmod(name string, mode os.FileMode) error {
	ch, ok := s.Filesystem.(billy.Chmod)
	if !ok {
		return billy.ErrNotSupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ch.Chmod(name, mode)
}
