// Package modpath implements the path algebra shared by the build-time
// resolver and the client runtime.
//
// Two identifiers exist for every module:
//
//   - A logical path encodes the chain of dependency resolutions taken to
//     reach a module. A "$" marker segment is immediately followed by a
//     dependency name: /$/foo/$/baz/lib/index is baz's lib/index as pulled
//     in by foo from the project root.
//   - A real path is version qualified: /baz@3.0.0/lib/index. Every logical
//     path reaching the same installed version collapses onto it.
//
// Normalize and Join operate on raw strings. Parse tokenizes a path once
// into Plain and Marker segments so marker-aware walks (ascending search,
// last-marker split) never have to scan strings by offset.
package modpath
