// Package graph walks the dependency graph of entry modules on disk and
// emits the bundle operations that let the client runtime reproduce it.
//
// For every resolved PathInfo the builder emits, at most once each:
//
//	dep    for a path inside node_modules
//	remap  for a browser override
//	main   for a directory, followed by its entry file
//	def    for a file, followed by every require(...) found in it
//
// Entry files become run operations, appended after everything else so
// that all definitions exist when they execute.
package graph
