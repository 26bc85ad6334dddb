package resolver

import (
	"errors"
	"fmt"
)

// ErrModuleNotFound is matched by every NotFoundError through errors.Is.
var ErrModuleNotFound = errors.New("module not found")

// NotFoundError reports a request that no filesystem probe could satisfy.
type NotFoundError struct {
	Request string
	From    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module not found: %s (from: %s)", e.Request, e.From)
}

// Is reports whether target is ErrModuleNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RootError reports a path for which no project root could be found.
type RootError struct {
	Path string
}

func (e *RootError) Error() string {
	return fmt.Sprintf("unable to determine project root for path %q", e.Path)
}

// OverrideError reports a browser override that cannot be followed.
type OverrideError struct {
	Path   string
	Target string
	Reason string
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("browser override %q for %s: %s", e.Target, e.Path, e.Reason)
}
