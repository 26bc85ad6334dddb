package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a bundle ID is unknown.
var ErrNotFound = errors.New("bundle not found")

// ConflictError reports a write of a bundle ID that already exists with
// different content.
type ConflictError struct {
	ID           string
	StoredHash   string
	IncomingHash string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("bundle %s already stored with hash %s (incoming %s)", e.ID, e.StoredHash, e.IncomingHash)
}

// IntegrityError reports a stored bundle whose content no longer matches
// its recorded hash.
type IntegrityError struct {
	ID       string
	Recorded string
	Computed string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("bundle %s: recorded hash %s, computed %s", e.ID, e.Recorded, e.Computed)
}
