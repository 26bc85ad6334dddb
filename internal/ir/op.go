package ir

import (
	"errors"
	"fmt"
)

// OpKind names a registry operation.
type OpKind string

const (
	OpDef        OpKind = "def"
	OpDep        OpKind = "dep"
	OpMain       OpKind = "main"
	OpRemap      OpKind = "remap"
	OpSearchPath OpKind = "search_path"
	OpRun        OpKind = "run"
)

// Op is one registry operation. Which fields are meaningful depends on
// Kind:
//
//	def          Path (real path), Source, Object
//	dep          Path (parent logical path), Name, Version, Alias
//	main         Path (directory real path), Target (relative entry)
//	remap        Path (real path replaced), Target (relative replacement)
//	search_path  Path (logical root)
//	run          Path (logical path), Source, Wait
type Op struct {
	Seq     int64  `json:"seq" yaml:"seq"`
	Kind    OpKind `json:"kind" yaml:"kind"`
	Path    string `json:"path" yaml:"path"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Alias   string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Target  string `json:"target,omitempty" yaml:"target,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`

	// Object marks a def whose Source is a JSON document used verbatim as
	// the module's exports.
	Object bool `json:"object,omitempty" yaml:"object,omitempty"`

	// Wait defers a run until the bundle is ready.
	Wait bool `json:"wait,omitempty" yaml:"wait,omitempty"`

	// File is the filesystem origin of a def or run. It is informational
	// and excluded from content hashes.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// ValidationError reports an operation missing a required field.
type ValidationError struct {
	Index int
	Kind  OpKind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("op %d (%s): missing %s", e.Index, e.Kind, e.Field)
}

var errUnknownKind = errors.New("unknown op kind")

// Validate checks that the fields required by the op kind are set.
func (o Op) Validate() error {
	return o.validate(0)
}

func (o Op) validate(index int) error {
	missing := func(field string) error {
		return &ValidationError{Index: index, Kind: o.Kind, Field: field}
	}

	switch o.Kind {
	case OpDef, OpRun:
		if o.Path == "" {
			return missing("path")
		}
	case OpDep:
		if o.Name == "" {
			return missing("name")
		}
		if o.Version == "" {
			return missing("version")
		}
	case OpMain, OpRemap:
		if o.Path == "" {
			return missing("path")
		}
		if o.Target == "" {
			return missing("target")
		}
	case OpSearchPath:
		if o.Path == "" {
			return missing("path")
		}
	default:
		return fmt.Errorf("op %d: %w %q", index, errUnknownKind, o.Kind)
	}
	return nil
}

// canonicalValue renders the op as a canonical JSON object, omitting
// empty optional fields.
func (o Op) canonicalValue() map[string]any {
	v := map[string]any{
		"seq":  o.Seq,
		"kind": string(o.Kind),
		"path": o.Path,
	}
	optional := map[string]string{
		"name":    o.Name,
		"version": o.Version,
		"alias":   o.Alias,
		"target":  o.Target,
		"source":  o.Source,
	}
	for k, s := range optional {
		if s != "" {
			v[k] = s
		}
	}
	if o.Object {
		v["object"] = true
	}
	if o.Wait {
		v["wait"] = true
	}
	return v
}
