// Package harness runs client runtime scenarios written in YAML.
//
// A scenario registers bundle ops (defs, deps, mains, remaps, search paths
// and runs) on a fresh jsrt.Runtime, then executes steps against it:
//
//	steps:
//	  - resolve: foo
//	    from: /src
//	    expect: {logical: /$/foo/lib/index, real: /foo@1.0.0/lib/index}
//	  - require: ./a
//	    expect:
//	      exports: {name: a}
//	  - ready: true
//
// Every op and step is recorded in a trace stamped by a deterministic
// clock, so traces can be compared against golden files with
// RunWithGolden. Assertions check module states, exports and trace
// counts after the last step.
package harness
