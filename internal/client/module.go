package client

import (
	"github.com/roach88/rmod/internal/modpath"
)

// State is the lifecycle position of a module record.
type State int

const (
	// StateAbsent is the zero state: no record exists in the cache.
	StateAbsent State = iota
	// StateInstantiating means the record is cached and its factory runs.
	StateInstantiating
	// StateLoaded means the factory returned successfully.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateInstantiating:
		return "instantiating"
	case StateLoaded:
		return "loaded"
	default:
		return "absent"
	}
}

// Module is the record created once per logical path.
type Module struct {
	// ID is the logical path; it is the cache identity.
	ID string

	// Filename is the real path the definition was found under.
	Filename string

	// Dirname is the directory of Filename.
	Dirname string

	// Exports starts as an empty map and may be mutated or replaced by the
	// factory. Circular requires observe its value at the time they run.
	Exports any

	state State
}

func newModule(r Resolved) *Module {
	return &Module{
		ID:       r.LogicalPath,
		Filename: r.RealPath,
		Dirname:  modpath.Dirname(r.RealPath),
		Exports:  map[string]any{},
	}
}

// State reports the lifecycle state.
func (m *Module) State() State {
	return m.state
}

// Loaded reports whether the factory completed.
func (m *Module) Loaded() bool {
	return m.state == StateLoaded
}

// instantiate runs def for m and returns the resulting exports. A plain
// value becomes the exports as is. A failing factory leaves m in
// StateInstantiating.
func instantiate(m *Module, def Definition, req *Require) (any, error) {
	m.state = StateInstantiating
	if def.IsValue() {
		m.Exports = def.Value
		m.state = StateLoaded
		return m.Exports, nil
	}

	if def.Factory != nil {
		if err := def.Factory(req, m); err != nil {
			return nil, err
		}
	}
	m.state = StateLoaded
	return m.Exports, nil
}
