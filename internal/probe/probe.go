// Package probe memoizes filesystem existence checks made during
// resolution.
package probe

import (
	"os"
	"path/filepath"
	"sync"
)

// Kind is what a path turned out to be.
type Kind int

const (
	// Missing means nothing exists at the path, or it could not be stat'd.
	Missing Kind = iota
	// File is a regular file or anything else that is not a directory.
	File
	// Dir is a directory.
	Dir
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Dir:
		return "dir"
	default:
		return "missing"
	}
}

// FS answers stat queries and caches every answer. Entries are never
// invalidated, so an FS must not outlive the build it serves.
//
// Thread-safety: all methods are safe for concurrent use.
type FS struct {
	mu    sync.Mutex
	kinds map[string]Kind
	dirs  map[string][]string
}

// New creates an empty FS.
func New() *FS {
	return &FS{
		kinds: make(map[string]Kind),
		dirs:  make(map[string][]string),
	}
}

// Stat reports the kind of path.
func (f *FS) Stat(path string) Kind {
	path = filepath.Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.kinds[path]; ok {
		return k
	}

	k := Missing
	if info, err := os.Stat(path); err == nil {
		k = File
		if info.IsDir() {
			k = Dir
		}
	}
	f.kinds[path] = k
	return k
}

// IsFile reports whether path is an existing file.
func (f *FS) IsFile(path string) bool {
	return f.Stat(path) == File
}

// IsDir reports whether path is an existing directory.
func (f *FS) IsDir(path string) bool {
	return f.Stat(path) == Dir
}

// Exists reports whether path is an existing file or directory.
func (f *FS) Exists(path string) bool {
	return f.Stat(path) != Missing
}

// ResolveFile returns the first existing file among path+ext for each ext
// in order, then path itself when it is a directory or a file. The
// extension candidates win over the bare path so that "lib/index" finds
// "lib/index.js" even when a directory "lib/index" exists.
func (f *FS) ResolveFile(path string, exts []string) (string, Kind) {
	for _, ext := range exts {
		candidate := path + ext
		if f.IsFile(candidate) {
			return candidate, File
		}
	}
	if k := f.Stat(path); k != Missing {
		return path, k
	}
	return "", Missing
}

// List returns the sorted entry names of dir, or nil when it cannot be
// read.
func (f *FS) List(dir string) []string {
	dir = filepath.Clean(dir)

	f.mu.Lock()
	defer f.mu.Unlock()
	if names, ok := f.dirs[dir]; ok {
		return names
	}

	var names []string
	if entries, err := os.ReadDir(dir); err == nil {
		names = make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
	}
	f.dirs[dir] = names
	return names
}
