package harness

// Trace event types.
const (
	eventOp     = "op"
	stepResolve = "resolve"
	stepRequire = "require"
	stepReady   = "ready"
)

// TraceEvent records one op or step.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"` // "op", "resolve", "require" or "ready"

	// Op events.
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`

	// Step events.
	Request string `json:"request,omitempty"`
	From    string `json:"from,omitempty"`
	Logical string `json:"logical,omitempty"`
	Real    string `json:"real,omitempty"`
	Exports any    `json:"exports,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns how many events of the given type were recorded.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
