package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rmod/internal/ir"
)

// Scenario defines a client runtime test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ops are registered in order before the steps run. Seq numbers are
	// assigned by the harness and must be left out.
	Ops []ir.Op `yaml:"ops,omitempty"`

	// Steps are executed in order after the ops.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final runtime state and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single resolve, require or ready action. Exactly one of
// Resolve, Require and Ready must be set.
type Step struct {
	Resolve string `yaml:"resolve,omitempty"`
	Require string `yaml:"require,omitempty"`
	Ready   bool   `yaml:"ready,omitempty"`

	// From is the logical directory of the request. Defaults to "/".
	From string `yaml:"from,omitempty"`

	// Expect validates the outcome. If nil, the step must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Action names the step kind.
func (s Step) Action() string {
	switch {
	case s.Resolve != "":
		return stepResolve
	case s.Require != "":
		return stepRequire
	case s.Ready:
		return stepReady
	}
	return ""
}

// Request returns the request string of resolve and require steps.
func (s Step) Request() string {
	if s.Resolve != "" {
		return s.Resolve
	}
	return s.Require
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	Logical string `yaml:"logical,omitempty"`
	Real    string `yaml:"real,omitempty"`

	// Exports is compared with the exports returned by a require step.
	// Integers and integral floats compare equal.
	Exports any `yaml:"exports,omitempty"`

	// Error is a substring the step error must contain. When set, the
	// step must fail.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "module_state": the module cached at Path is in State
	// - "exports": the module cached at Path exports Value
	// - "trace_count": Event appears exactly Count times in the trace
	Type string `yaml:"type"`

	Path  string `yaml:"path,omitempty"`
	State string `yaml:"state,omitempty"`
	Value any    `yaml:"value,omitempty"`
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertModuleState = "module_state"
	AssertExports     = "exports"
	AssertTraceCount  = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and fills in defaults.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, op := range s.Ops {
		if op.Seq != 0 {
			return fmt.Errorf("ops[%d]: seq is assigned by the harness", i)
		}
		if err := op.Validate(); err != nil {
			return fmt.Errorf("ops[%d]: %w", i, err)
		}
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		set := 0
		if step.Resolve != "" {
			set++
		}
		if step.Require != "" {
			set++
		}
		if step.Ready {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of resolve, require or ready is required", i)
		}
		if step.Ready && step.Expect != nil && (step.Expect.Logical != "" || step.Expect.Real != "" || step.Expect.Exports != nil) {
			return fmt.Errorf("steps[%d]: ready can only expect an error", i)
		}
		if step.From == "" {
			step.From = "/"
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertModuleState:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: module_state requires path", index)
		}
		switch a.State {
		case "absent", "instantiating", "loaded":
		default:
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertExports:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: exports requires path", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: trace_count requires event", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
