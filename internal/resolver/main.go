package resolver

import (
	"path/filepath"

	"github.com/roach88/rmod/internal/probe"
)

// maxMainDepth bounds "main" fields that name directories.
const maxMainDepth = 8

// MainFile returns the entry file of dir: the package.json main (with a
// registered extension added when it has none), or index.<ext>. A main
// naming a directory is followed to that directory's own entry.
func (r *Resolver) MainFile(dir string) (string, bool, error) {
	return r.mainFile(filepath.Clean(dir), 0)
}

func (r *Resolver) mainFile(dir string, depth int) (string, bool, error) {
	pkg, err := r.pkgs.Read(dir)
	if err != nil {
		return "", false, err
	}
	if pkg == nil || pkg.Main == "" {
		f, ok := r.withExt(dir, "index")
		return f, ok, nil
	}

	main := filepath.Join(dir, filepath.FromSlash(pkg.Main))
	switch r.fs.Stat(main) {
	case probe.File:
		return main, true, nil
	case probe.Dir:
		if f, ok := r.withExt(filepath.Dir(main), filepath.Base(main)); ok {
			return f, true, nil
		}
		if depth >= maxMainDepth {
			return "", false, nil
		}
		return r.mainFile(main, depth+1)
	}

	f, ok := r.withExt(filepath.Dir(main), filepath.Base(main))
	return f, ok, nil
}

// findMain adapts MainFile for the override engine, which has already
// surfaced any manifest error for dir.
func (r *Resolver) findMain(dir string) (string, bool) {
	f, ok, err := r.mainFile(dir, 0)
	if err != nil {
		return "", false
	}
	return f, ok
}

// withExt looks in dir for base.<ext> in registered extension order.
func (r *Resolver) withExt(dir, base string) (string, bool) {
	names := r.fs.List(dir)
	if len(names) == 0 {
		return "", false
	}
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}
	for _, ext := range r.opts.Extensions {
		if _, ok := present[base+ext]; !ok {
			continue
		}
		if candidate := filepath.Join(dir, base+ext); r.fs.IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}
