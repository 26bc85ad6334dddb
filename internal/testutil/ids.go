package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable bundle IDs: "<prefix>-0001",
// "<prefix>-0002", and so on. Golden snapshots depend on it.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "bundle".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "bundle"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
