package jsrt

import (
	"fmt"

	"github.com/roach88/rmod/internal/ir"
)

// LoadError reports a bundle op that could not be applied.
type LoadError struct {
	Index int
	Kind  ir.OpKind
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("op %d (%s %s): %v", e.Index, e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
