package resolver

import (
	"path/filepath"
	"strings"

	"github.com/roach88/rmod/internal/modpath"
)

// ProjectRoot returns the root directory logical paths are computed
// against for path.
func (r *Resolver) ProjectRoot(path string) (string, error) {
	if r.opts.Root != "" {
		return r.opts.Root, nil
	}
	path = filepath.Clean(path)

	r.mu.Lock()
	for _, root := range r.roots {
		if within(path, root) {
			r.mu.Unlock()
			return root, nil
		}
	}
	r.mu.Unlock()

	dir := path
	if !r.fs.IsDir(path) {
		dir = filepath.Dir(path)
	}
	for {
		// Intermediate manifests without a name only declare a main; they
		// never start a project.
		if !hasNodeModules(dir) {
			pkg, err := r.pkgs.Read(dir)
			if err != nil {
				return "", err
			}
			if pkg != nil && pkg.Name != "" {
				r.mu.Lock()
				r.roots = append(r.roots, dir)
				r.mu.Unlock()
				r.logger.Debug("project root discovered", "root", dir, "path", path)
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &RootError{Path: path}
		}
		dir = parent
	}
}

func hasNodeModules(dir string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg == modpath.NodeModules {
			return true
		}
	}
	return false
}

// moduleRoot returns the nearest directory at or above path whose
// manifest declares a name, or "" when there is none.
func (r *Resolver) moduleRoot(path string) (string, error) {
	dir := path
	if !r.fs.IsDir(path) {
		dir = filepath.Dir(path)
	}
	for {
		pkg, err := r.pkgs.Read(dir)
		if err != nil {
			return "", err
		}
		if pkg != nil && pkg.Name != "" {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
