package resolver

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/roach88/rmod/internal/modpath"
)

// Deresolve returns a request that reaches targetPath when required from
// the directory from:
//
//	<root>/node_modules/foo/index.js from <root>/src   // "foo"
//	<root>/node_modules/foo/hello.js from <root>/src   // "foo/hello"
//	<root>/src/bar.js from <root>/src                   // "./bar"
//
// Files inside the same package get a relative request. Files of an
// installed package get a package request, collapsed to the package name
// when the file is the package main. Registered extensions are removed.
func (r *Resolver) Deresolve(targetPath, from string) (string, error) {
	targetPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("deresolve: %w", err)
	}
	from, err = filepath.Abs(from)
	if err != nil {
		return "", fmt.Errorf("deresolve: %w", err)
	}

	targetRoot, err := r.moduleRoot(targetPath)
	if err != nil {
		return "", err
	}
	fromRoot, err := r.moduleRoot(from)
	if err != nil {
		return "", err
	}

	if targetRoot != "" && targetRoot == fromRoot {
		return r.relativeRequest(targetPath, from)
	}

	var request string
	if fromRoot != "" && targetRoot != "" {
		installDir := filepath.Join(fromRoot, modpath.NodeModules)
		if within(targetRoot, installDir) {
			rel, err := filepath.Rel(installDir, targetPath)
			if err == nil {
				request = filepath.ToSlash(rel)
			}
		}
	}

	if request == "" && targetRoot != "" {
		// Linked or hoisted elsewhere: try the package name and keep it
		// only when it leads back to the same file.
		pkg, err := r.pkgs.Read(targetRoot)
		if err != nil {
			return "", err
		}
		if pkg != nil && pkg.Name != "" {
			rel, err := filepath.Rel(targetRoot, targetPath)
			if err == nil {
				candidate := path.Join(pkg.Name, filepath.ToSlash(rel))
				if found, _ := r.find(candidate, from); found == targetPath {
					request = candidate
				}
			}
		}
	}

	if request == "" {
		return r.relativeRequest(targetPath, from)
	}

	main, ok, err := r.mainFile(targetRoot, 0)
	if err != nil {
		return "", err
	}
	if ok && main == targetPath {
		extra := filepath.ToSlash(strings.TrimPrefix(targetPath, targetRoot))
		request = strings.TrimSuffix(request, extra)
	}

	return modpath.StripExt(request, r.opts.Extensions), nil
}

// relativeRequest builds a "./" or "../" request. A file that is the main
// of its directory is reached through the directory.
func (r *Resolver) relativeRequest(targetPath, from string) (string, error) {
	dir := filepath.Dir(targetPath)
	main, ok, err := r.mainFile(dir, 0)
	if err != nil {
		return "", err
	}
	if ok && main == targetPath {
		targetPath = dir
	}

	rel, err := filepath.Rel(from, targetPath)
	if err != nil {
		return "", fmt.Errorf("deresolve: %w", err)
	}
	rel = modpath.StripExt(filepath.ToSlash(rel), r.opts.Extensions)
	if rel != "." && rel != ".." && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}
