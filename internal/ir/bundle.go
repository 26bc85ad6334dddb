package ir

// Bundle is an ordered set of operations produced by one build.
type Bundle struct {
	Version string `json:"version" yaml:"version"`
	ID      string `json:"id" yaml:"id"`

	// Entries are the build requests the bundle was built from.
	Entries []string `json:"entries,omitempty" yaml:"entries,omitempty"`

	Ops []Op `json:"ops" yaml:"ops"`
}

// NewBundle creates an empty bundle with the current format version.
func NewBundle(id string) *Bundle {
	return &Bundle{Version: FormatVersion, ID: id}
}

// Validate checks every operation.
func (b *Bundle) Validate() error {
	for i, op := range b.Ops {
		if err := op.validate(i); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of operations of kind.
func (b *Bundle) Count(kind OpKind) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the operations of kind in order.
func (b *Bundle) Filter(kind OpKind) []Op {
	var out []Op
	for _, op := range b.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
