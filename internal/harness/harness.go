package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/jsrt"
	"github.com/roach88/rmod/internal/testutil"
)

// Harness executes one scenario against a fresh runtime.
type Harness struct {
	rt     *jsrt.Runtime
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes runtime and console output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh runtime and deterministic clock
// 2. Stamp and load the scenario ops
// 3. Execute steps, checking expect clauses
// 4. Evaluate assertions
//
// An error is returned only when the ops cannot be loaded; failed
// expectations are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	rt, err := jsrt.New(jsrt.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	h.rt = rt

	result := NewResult()

	bundle := ir.NewBundle(scenario.Name)
	for _, op := range scenario.Ops {
		op.Seq = h.clock.Next()
		bundle.Ops = append(bundle.Ops, op)
		result.Trace = append(result.Trace, TraceEvent{
			Seq:  op.Seq,
			Type: eventOp,
			Kind: string(op.Kind),
			Path: op.Path,
		})
	}
	if err := rt.Load(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to load ops: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		event, stepErr := h.execute(step)
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(step, event, stepErr) {
			result.AddError(fmt.Sprintf("steps[%d] (%s %s): %s", i, step.Action(), step.Request(), msg))
		}
	}

	for _, msg := range EvaluateAssertions(rt, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) execute(step Step) (TraceEvent, error) {
	event := TraceEvent{
		Seq:     h.clock.Next(),
		Type:    step.Action(),
		Request: step.Request(),
	}
	if step.Action() != stepReady {
		event.From = step.From
	}

	var err error
	switch step.Action() {
	case stepResolve, stepRequire:
		resolved, rerr := h.rt.Client().Resolve(step.Request(), step.From)
		if rerr != nil {
			err = rerr
			break
		}
		event.Logical = resolved.LogicalPath
		event.Real = resolved.RealPath

		if step.Action() == stepRequire {
			var exports any
			exports, err = h.rt.Require(step.Request(), step.From)
			if err == nil {
				event.Exports = normalize(exports)
			}
		}
	case stepReady:
		err = h.rt.Ready()
	}

	if err != nil {
		event.Error = err.Error()
	}
	return event, err
}

// checkExpect compares the step outcome with its expect clause.
func checkExpect(step Step, event TraceEvent, err error) []string {
	expect := step.Expect
	if expect == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}

	if expect.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error containing %q, got success", expect.Error)}
		}
		if !strings.Contains(err.Error(), expect.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", expect.Error, err.Error())}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	if expect.Logical != "" && expect.Logical != event.Logical {
		msgs = append(msgs, fmt.Sprintf("logical path: expected %q, got %q", expect.Logical, event.Logical))
	}
	if expect.Real != "" && expect.Real != event.Real {
		msgs = append(msgs, fmt.Sprintf("real path: expected %q, got %q", expect.Real, event.Real))
	}
	if expect.Exports != nil && !valuesEqual(expect.Exports, event.Exports) {
		msgs = append(msgs, fmt.Sprintf("exports: expected %v, got %v", expect.Exports, event.Exports))
	}
	return msgs
}
