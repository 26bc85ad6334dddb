package client

import (
	"fmt"

	"github.com/roach88/rmod/internal/modpath"
)

// maxRemapHops bounds remap chains that re-enter resolution through a
// dependency marker.
const maxRemapHops = 8

// Resolve maps request, made from the logical directory from, to its
// logical and real paths without instantiating anything.
//
// Requests are classified in order: empty (not found), relative ("."),
// absolute ("/") and bare package names. Main and remap bindings are then
// applied to the base pair and the final real path must have a definition.
func (c *Context) Resolve(request, from string) (Resolved, error) {
	if request == "" {
		return Resolved{}, notFound(request, from, "", ReasonEmptyRequest)
	}

	if modpath.IsRelative(request) || modpath.IsAbsolute(request) {
		target := request
		if modpath.IsRelative(request) {
			target = modpath.Join(from, request)
		}
		base, err := c.resolveAbsolute(request, from, modpath.Parse(target).Rooted())
		if err != nil {
			return Resolved{}, err
		}
		return c.finish(request, from, base, 0)
	}

	base, ok := c.ascend(request, from)
	if ok {
		return c.finish(request, from, base, 0)
	}

	for _, root := range c.searchPaths {
		candidate, err := c.resolveAbsolute(request, from, root.AppendString(request))
		if err != nil {
			continue
		}
		if resolved, err := c.finish(request, from, candidate, 0); err == nil {
			c.logger.Debug("resolved through search path",
				"request", request,
				"search_path", root.String(),
				"logical", resolved.LogicalPath)
			return resolved, nil
		}
	}

	return Resolved{}, notFound(request, from, "", ReasonNoEdge)
}

// resolveAbsolute splits target at its last marker and looks up the edge
// keyed by everything up to and including that marker. A path without
// markers is its own real path.
func (c *Context) resolveAbsolute(request, from string, target modpath.Path) (Resolved, error) {
	i := target.LastMarker()
	if i < 0 {
		p := target.String()
		return Resolved{LogicalPath: p, RealPath: p}, nil
	}

	key := target.Slice(0, i+1)
	edge, ok := c.dependencies[key.String()]
	if !ok {
		return Resolved{}, notFound(request, from, key.String(), ReasonNoEdge)
	}

	return bind(target.Slice(0, i), edge, target.Slice(i+1, target.Len())), nil
}

// ascend performs the ascending search for a bare request: starting at
// from, each enclosing scope is tried and the nearest edge wins. Parent
// removes a marker together with its name, so no lookup is ever keyed on a
// scope ending in a bare "$".
func (c *Context) ascend(request, from string) (Resolved, bool) {
	name, subpath := modpath.SplitPackage(request)
	rest := modpath.Parse(subpath)

	scope := modpath.Parse(from).Rooted()
	for {
		key := modpath.DependencyKey(scope, name)
		if edge, ok := c.dependencies[key]; ok {
			c.logger.Debug("dependency edge matched",
				"request", request,
				"from", from,
				"key", key,
				"version", edge.Version)
			return bind(scope, edge, rest), true
		}

		parent, ok := scope.Parent()
		if !ok {
			return Resolved{}, false
		}
		scope = parent
	}
}

// bind produces the path pair for rest inside the package edge points to,
// as seen from scope. Alias edges bind under the package's own name.
func bind(scope modpath.Path, edge Edge, rest modpath.Path) Resolved {
	logical := scope.Rooted().Append(modpath.MarkerFor(edge.Name)).Append(rest.Segments...)

	subpath := ""
	if !rest.IsEmpty() {
		subpath = modpath.Separator + modpath.Path{Segments: rest.Segments}.String()
	}

	return Resolved{
		LogicalPath: logical.String(),
		RealPath:    modpath.RealPath(edge.Name, edge.Version, subpath),
	}
}

// finish applies the main binding, then the remap binding, then checks for
// a definition, retrying with a registered extension stripped.
func (c *Context) finish(request, from string, r Resolved, hops int) (Resolved, error) {
	if main, ok := c.mains[r.RealPath]; ok {
		r.LogicalPath = modpath.Join(r.LogicalPath, main)
		r.RealPath = modpath.Join(r.RealPath, main)
	}

	if target, ok := c.remaps[r.RealPath]; ok {
		if hops >= maxRemapHops {
			return Resolved{}, fmt.Errorf("resolve %q (from: %q): remap chain exceeds %d hops at %s", request, from, maxRemapHops, r.RealPath)
		}

		logical := modpath.Join(r.LogicalPath+"/..", target)
		if !modpath.Parse(target).HasMarker() {
			r.LogicalPath = logical
			r.RealPath = modpath.Join(r.RealPath+"/..", target)
		} else {
			// The replacement lives in another package; its real path comes
			// from the dependency edge reached through the new logical path.
			next, err := c.resolveAbsolute(request, from, modpath.Parse(logical).Rooted())
			if err != nil {
				return Resolved{}, err
			}
			return c.finish(request, from, next, hops+1)
		}
		c.logger.Debug("remap applied", "request", request, "target", target, "real", r.RealPath)
	}

	if c.Defined(r.RealPath) {
		return r, nil
	}

	stripped := Resolved{
		LogicalPath: modpath.StripExt(r.LogicalPath, c.extensions),
		RealPath:    modpath.StripExt(r.RealPath, c.extensions),
	}
	if stripped.RealPath != r.RealPath && c.Defined(stripped.RealPath) {
		return stripped, nil
	}

	return Resolved{}, notFound(request, from, r.RealPath, ReasonNoDefinition)
}
