// Package ir defines the bundle representation exchanged between the
// build-time resolver and the client runtime.
//
// A Bundle is an ordered list of registry operations. Replaying the
// operations in order against a client.Context reproduces the build-time
// resolution without any filesystem access:
//
//	def          register a factory source (or a JSON value) at a real path
//	dep          register a dependency edge parent/$/name -> version
//	main         bind a directory real path to its entry file
//	remap        replace a real path by a relative target
//	search_path  add a logical root for bare requests
//	run          define and instantiate an entry module
//
// ir imports nothing internal. Canonical JSON (RFC 8785) is the only
// serialization used for content hashes.
package ir
