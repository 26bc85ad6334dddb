// Package client implements the client-time half of the module system: a
// require() equivalent that resolves and instantiates modules purely from
// in-memory tables, with no filesystem access.
//
// A Context owns four tables populated during a bootstrap phase:
//
//   - definitions:  real path -> factory or plain value
//   - dependencies: "<parent logical path>/$/<name>" -> version (and alias)
//   - mains:        directory real path -> relative entry path
//   - remaps:       file real path -> relative replacement path
//
// and the instance cache, keyed by logical path. The same definition can
// back several cached instances when different parents reach the same
// package version.
//
// # Lifecycle
//
// Per logical path a module moves Absent -> Instantiating -> Loaded. The
// record is inserted into the cache before its factory runs, so a circular
// require observes the partially populated exports instead of recursing.
//
// # Concurrency
//
// A Context is not safe for concurrent use. Registration happens before any
// Require call and resolution is synchronous and re-entrant.
package client
