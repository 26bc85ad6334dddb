package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored hashes.
const (
	DomainSource = "rmod/source/v1"
	DomainBundle = "rmod/bundle/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash is the content address of a definition source.
func SourceHash(source string) string {
	return hashWithDomain(DomainSource, []byte(source))
}

// Hash computes the content hash of the bundle operations. The bundle ID
// and op File fields do not participate, so two builds of the same tree
// hash equal.
func (b *Bundle) Hash() (string, error) {
	ops := make([]any, len(b.Ops))
	for i, op := range b.Ops {
		ops[i] = op.canonicalValue()
	}
	entries := make([]any, len(b.Entries))
	for i, e := range b.Entries {
		entries[i] = e
	}

	canonical, err := MarshalCanonical(map[string]any{
		"version": b.Version,
		"entries": entries,
		"ops":     ops,
	})
	if err != nil {
		return "", fmt.Errorf("bundle hash: %w", err)
	}
	return hashWithDomain(DomainBundle, canonical), nil
}
