package ir

import "github.com/google/uuid"

// IDGenerator produces bundle IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-ordered UUIDv7 bundle IDs, so stored
// bundles sort by creation.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
