package resolver

import (
	"path/filepath"

	"github.com/roach88/rmod/internal/modpath"
	"github.com/roach88/rmod/internal/overrides"
	"github.com/roach88/rmod/internal/probe"
)

// ResolveRequire resolves request as if require(request) were called from
// a module in the directory from.
//
// An existing absolute path is described directly. A bare request first
// consults the browser overrides in scope of from; a module to module
// override resolves the replacement from the declaring directory and
// records the requested name as the edge alias. Otherwise the request is
// found on disk and described by PathInfo, which applies file overrides.
func (r *Resolver) ResolveRequire(request, from string) (*PathInfo, error) {
	abs, err := filepath.Abs(from)
	if err == nil {
		from = abs
	}
	return r.resolveRequire(request, from, 0)
}

func (r *Resolver) resolveRequire(request, from string, depth int) (*PathInfo, error) {
	if request == "" {
		return nil, &NotFoundError{Request: request, From: from}
	}
	if depth > maxOverrideDepth {
		return nil, &OverrideError{Path: from, Target: request, Reason: "override chain too deep"}
	}
	from = filepath.Clean(from)

	if r.opts.Browser && isBare(request) {
		target, err := r.overrides.Lookup(from, request)
		if err != nil {
			return nil, err
		}
		if target != nil {
			return r.applyModuleOverride(request, target, depth)
		}
	}

	path, kind := r.find(request, from)
	if kind == probe.Missing {
		return nil, &NotFoundError{Request: request, From: from}
	}
	r.logger.Debug("require resolved", "request", request, "from", from, "path", path)

	return r.pathInfo(path, depth)
}

func (r *Resolver) applyModuleOverride(request string, target *overrides.Target, depth int) (*PathInfo, error) {
	var (
		info *PathInfo
		err  error
	)
	switch target.Kind {
	case overrides.KindModule:
		info, err = r.resolveRequire(target.Value, target.Dir, depth+1)
		if err != nil {
			return nil, err
		}
		if info.Dep != nil {
			name, _ := modpath.SplitPackage(request)
			if name != info.Dep.ChildName {
				info.Dep.Alias = name
			}
		}
	case overrides.KindFile:
		f, ferr := r.overrideFile(target.Dir, target)
		if ferr != nil {
			return nil, ferr
		}
		info, err = r.pathInfo(f, depth+1)
		if err != nil {
			return nil, err
		}
	}

	info.IsBrowserOverride = true
	r.logger.Debug("module override applied",
		"request", request,
		"target", target.Value,
		"declared_in", target.Dir,
		"logical", info.LogicalPath)
	return info, nil
}
