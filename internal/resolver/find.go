package resolver

import (
	"path/filepath"
	"strings"

	"github.com/roach88/rmod/internal/modpath"
	"github.com/roach88/rmod/internal/probe"
)

// find locates the file or directory request reaches from the directory
// from. Relative requests are joined to from; bare requests are tried in
// every node_modules directory from from upward, then in each search path.
func (r *Resolver) find(request, from string) (string, probe.Kind) {
	exts := r.opts.Extensions

	switch {
	case filepath.IsAbs(request):
		return r.fs.ResolveFile(filepath.Clean(request), exts)
	case modpath.IsRelative(request):
		return r.fs.ResolveFile(filepath.Join(from, filepath.FromSlash(request)), exts)
	}

	for _, dir := range r.lookupDirs(from) {
		p, kind := r.fs.ResolveFile(filepath.Join(dir, filepath.FromSlash(request)), exts)
		if kind != probe.Missing {
			return p, kind
		}
	}
	return "", probe.Missing
}

// lookupDirs lists the directories a bare request is tried in, nearest
// first. Directories that are themselves node_modules get no nested
// node_modules candidate.
func (r *Resolver) lookupDirs(from string) []string {
	var dirs []string
	for dir := filepath.Clean(from); ; {
		if filepath.Base(dir) != modpath.NodeModules {
			dirs = append(dirs, filepath.Join(dir, modpath.NodeModules))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for _, sp := range r.opts.SearchPaths {
		if !filepath.IsAbs(sp) && r.opts.Root != "" {
			sp = filepath.Join(r.opts.Root, sp)
		}
		dirs = append(dirs, filepath.Clean(sp))
	}
	return dirs
}

func isBare(request string) bool {
	return request != "" && !modpath.IsRelative(request) && !modpath.IsAbsolute(request) && !filepath.IsAbs(request)
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
