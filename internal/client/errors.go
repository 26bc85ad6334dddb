package client

import (
	"errors"
	"fmt"
)

// ErrModuleNotFound is matched by every NotFoundError through errors.Is.
var ErrModuleNotFound = errors.New("module not found")

// NotFoundReason categorizes a resolution miss.
type NotFoundReason string

const (
	// ReasonEmptyRequest indicates an empty request string.
	ReasonEmptyRequest NotFoundReason = "empty request"

	// ReasonNoEdge indicates no dependency edge matched at any scope.
	ReasonNoEdge NotFoundReason = "no dependency edge"

	// ReasonNoDefinition indicates the final real path has no definition,
	// even after stripping a registered extension.
	ReasonNoDefinition NotFoundReason = "no definition"
)

// NotFoundError reports a request that could not be resolved.
type NotFoundError struct {
	// Request is the original request string.
	Request string

	// From is the logical directory the request was made from.
	From string

	// Path is the last path that was looked up, when one was computed.
	Path string

	Reason NotFoundReason
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("module not found: %q (from: %q): %s for %s", e.Request, e.From, e.Reason, e.Path)
	}
	return fmt.Sprintf("module not found: %q (from: %q): %s", e.Request, e.From, e.Reason)
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

func notFound(request, from, path string, reason NotFoundReason) *NotFoundError {
	return &NotFoundError{Request: request, From: from, Path: path, Reason: reason}
}
