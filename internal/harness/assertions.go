package harness

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/roach88/rmod/internal/jsrt"
)

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(rt *jsrt.Runtime, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(rt, result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return msgs
}

func evaluate(rt *jsrt.Runtime, result *Result, a Assertion) error {
	switch a.Type {
	case AssertModuleState:
		state := "absent"
		if m, ok := rt.Client().Lookup(a.Path); ok {
			state = m.State().String()
		}
		if state != a.State {
			return fmt.Errorf("module %s: expected state %s, got %s", a.Path, a.State, state)
		}

	case AssertExports:
		exports, ok := rt.Exports(a.Path)
		if !ok {
			return fmt.Errorf("module %s is not instantiated", a.Path)
		}
		if got := normalize(exports); !valuesEqual(a.Value, got) {
			return fmt.Errorf("module %s: expected exports %v, got %v", a.Path, a.Value, got)
		}

	case AssertTraceCount:
		if n := result.Count(a.Event); n != a.Count {
			return fmt.Errorf("expected %d %s events, got %d", a.Count, a.Event, n)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// normalize maps YAML and JavaScript values onto one representation:
// every integer becomes int64, integral floats included.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func valuesEqual(want, got any) bool {
	return reflect.DeepEqual(normalize(want), normalize(got))
}

// canonical converts normalized values into what ir.MarshalCanonical
// accepts: null becomes the string "null" and non-integral floats are
// written in their shortest decimal form.
func canonical(v any) any {
	switch val := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = canonical(e)
		}
		return out
	case string, bool, int64:
		return val
	}
	return fmt.Sprintf("%v", v)
}
