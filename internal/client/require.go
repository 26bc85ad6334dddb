package client

import (
	"github.com/roach88/rmod/internal/modpath"
)

// Require is the module-scoped require handed to a factory. It resolves
// requests from the module's logical directory.
type Require struct {
	ctx *Context
	dir string
}

// Require loads request relative to the owning module.
func (r *Require) Require(request string) (any, error) {
	return r.ctx.Require(request, r.dir)
}

// Resolve resolves request relative to the owning module without
// instantiating it.
func (r *Require) Resolve(request string) (Resolved, error) {
	return r.ctx.Resolve(request, r.dir)
}

// Dir returns the logical directory requests are resolved from.
func (r *Require) Dir() string {
	return r.dir
}

// Require resolves request from the logical directory from and returns the
// module's exports, instantiating it on first use.
//
// A cached module is returned whatever its state, which is what lets a
// circular require see partial exports. Factory errors propagate to the
// caller untouched.
func (c *Context) Require(request, from string) (any, error) {
	resolved, err := c.Resolve(request, from)
	if err != nil {
		return nil, err
	}
	return c.load(resolved)
}

func (c *Context) load(r Resolved) (any, error) {
	if m, ok := c.cache[r.LogicalPath]; ok {
		if !m.Loaded() {
			c.logger.Debug("circular require", "logical", r.LogicalPath)
		}
		return m.Exports, nil
	}

	def, ok := c.definitions[r.RealPath]
	if !ok {
		return nil, notFound(r.LogicalPath, "", r.RealPath, ReasonNoDefinition)
	}

	m := newModule(r)
	c.cache[r.LogicalPath] = m

	c.logger.Debug("instantiating module", "logical", r.LogicalPath, "real", r.RealPath)
	req := &Require{ctx: c, dir: modpath.Dirname(r.LogicalPath)}
	return instantiate(m, def, req)
}

// RunOptions controls Run.
type RunOptions struct {
	// Wait defers instantiation until Ready is called.
	Wait bool
}

// Run defines factory at logicalPath, which doubles as its real path, and
// instantiates it. The entry point bypasses normal resolution. With
// opts.Wait the module is queued for Ready and nil exports are returned.
func (c *Context) Run(logicalPath string, factory Factory, opts RunOptions) (any, error) {
	p := modpath.Parse(logicalPath).Rooted().String()
	c.Define(p, factory)

	if opts.Wait {
		c.pending = append(c.pending, p)
		return nil, nil
	}
	return c.load(Resolved{LogicalPath: p, RealPath: p})
}

// Ready instantiates every queued run in registration order and stops at
// the first failure.
func (c *Context) Ready() error {
	pending := c.pending
	c.pending = nil
	for _, p := range pending {
		if _, err := c.load(Resolved{LogicalPath: p, RealPath: p}); err != nil {
			return err
		}
	}
	return nil
}
