package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roach88/stepwise/internal/interp"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/value"
)

// MaxStdout caps the captured print output of one trace in bytes. Output
// past the cap is dropped.
const MaxStdout = 1 << 20

// State is the lifecycle position of a Tracer.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateTimedOut
	StateTruncated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateTruncated:
		return "truncated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool { return s >= StateCompleted }

// Tracer records the steps of one execution. It is the interpreter hook
// and the stdout sink of the run.
//
// STATE MACHINE:
//
//	NotStarted -> Running -> Completed | Failed | TimedOut | Truncated
//
// Exactly one terminal state is reached, by Finish or Abandon, whichever
// comes first; the result is built once and returned by both.
//
// Thread-safety: the step list is guarded by a mutex so the governor's
// watchdog can take a consistent partial trace while an abandoned run is
// still unwinding on its own goroutine. After abandonment every hook call
// returns ErrAbandoned.
type Tracer struct {
	mu sync.Mutex

	traceID string
	script  ir.Script
	ser     *Serializer
	budget  *StepBudget
	clock   *StepClock
	seed    int64
	started time.Time

	state     State
	steps     []ir.Step
	prev      ir.Snapshot
	stack     []string
	stdout    strings.Builder
	pending   strings.Builder
	abandoned bool
	result    *ir.TraceResult
}

var _ interp.Hook = (*Tracer)(nil)

// NewTracer creates a tracer for script.
func NewTracer(traceID string, script ir.Script, ser *Serializer, seed int64) *Tracer {
	return &Tracer{
		traceID: traceID,
		script:  script,
		ser:     ser,
		clock:   &StepClock{},
		seed:    seed,
		steps:   []ir.Step{},
	}
}

// Start moves the tracer to Running; every step from now on is charged
// to budget.
func (t *Tracer) Start(budget *StepBudget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateNotStarted {
		t.state = StateRunning
		t.budget = budget
		t.started = time.Now()
	}
}

// State returns the current state.
func (t *Tracer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnCall implements interp.Hook.
func (t *Tracer) OnCall(fr *interp.Frame) error {
	return t.observe(fr, ir.EventCall, fr.Line, func() *ir.ControlFlow {
		t.stack = append(t.stack, fr.Function)
		return ir.FunctionCall(fr.Function, len(t.stack))
	})
}

// OnLine implements interp.Hook.
func (t *Tracer) OnLine(fr *interp.Frame, line int) error {
	return t.observe(fr, ir.EventLine, line, func() *ir.ControlFlow {
		return classifyLine(strings.TrimSpace(t.script.Line(line)))
	})
}

// OnReturn implements interp.Hook.
func (t *Tracer) OnReturn(fr *interp.Frame, result value.Value) error {
	return t.observe(fr, ir.EventReturn, fr.Line, func() *ir.ControlFlow {
		cf := ir.FunctionReturn(fr.Function, t.ser.Serialize(result))
		if n := len(t.stack); n > 0 {
			t.stack = t.stack[:n-1]
		}
		return cf
	})
}

// OnException implements interp.Hook.
func (t *Tracer) OnException(fr *interp.Frame, line int, exc *value.Exception) error {
	return t.observe(fr, ir.EventException, line, func() *ir.ControlFlow {
		return ir.Exception(exc.Class.ClassName, exc.Message())
	})
}

// classifyLine tags a line by its leading keyword. Headers spanning
// several lines are classified by their first line only.
func classifyLine(src string) *ir.ControlFlow {
	switch {
	case strings.HasPrefix(src, "if "), strings.HasPrefix(src, "elif "):
		return ir.Conditional(src)
	case strings.HasPrefix(src, "for "), strings.HasPrefix(src, "while "):
		return ir.Loop(src)
	case strings.HasPrefix(src, "return"):
		return ir.ReturnStatement(src)
	}
	return nil
}

func (t *Tracer) observe(fr *interp.Frame, ev ir.Event, line int, classify func() *ir.ControlFlow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.abandoned || t.state != StateRunning {
		return ErrAbandoned
	}
	if err := t.budget.Take(); err != nil {
		return err
	}

	snap := t.ser.Snapshot(fr)
	step := ir.Step{
		Index:       t.clock.Next(),
		Event:       ev,
		LineNumber:  line,
		SourceLine:  strings.TrimRight(t.script.Line(line), " \t"),
		Variables:   snap,
		Changes:     ir.Diff(t.prev, snap),
		ControlFlow: classify(),
		Output:      t.pending.String(),
	}
	t.pending.Reset()
	t.steps = append(t.steps, step)
	t.prev = snap.Clone()
	return nil
}

// Write captures script output. It implements io.Writer for the
// interpreter's print.
func (t *Tracer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.abandoned {
		return 0, ErrAbandoned
	}
	room := MaxStdout - t.stdout.Len()
	keep := p
	if len(keep) > room {
		keep = keep[:max(room, 0)]
	}
	t.stdout.Write(keep)
	t.pending.Write(keep)
	return len(p), nil
}

// Finish settles the terminal state from the interpreter's return value
// and builds the result. Only the first of Finish and Abandon takes
// effect.
func (t *Tracer) Finish(err error) *ir.TraceResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finish(err)
}

// Abandon finalizes the trace on behalf of a run that did not stop in
// time. The run keeps unwinding on its own but records nothing more.
func (t *Tracer) Abandon(cause error) *ir.TraceResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.abandoned = true
	return t.finish(cause)
}

func (t *Tracer) finish(err error) *ir.TraceResult {
	if t.result != nil {
		return t.result
	}

	r := ir.NewTraceResult(t.traceID, t.script)
	r.Steps = append(r.Steps, t.steps...)
	r.StepCount = len(r.Steps)
	r.Stdout = t.stdout.String()
	r.Seed = t.seed
	if !t.started.IsZero() {
		r.DurationMs = time.Since(t.started).Milliseconds()
	}

	var exc *value.Exception
	switch {
	case err == nil:
		t.state = StateCompleted
		r.Completed = true
	case errors.Is(err, ErrStepLimit):
		t.state = StateTruncated
		r.Truncated = true
	case IsTimeout(err):
		t.state = StateTimedOut
		r.Error = &ir.ExecutionError{Kind: ir.KindTimeoutError, Message: timeoutMessage(err)}
	case asException(err, &exc):
		t.state = StateFailed
		r.Error = &ir.ExecutionError{Kind: exc.Class.ClassName, Message: exc.Message(), Line: exc.Line}
	default:
		t.state = StateFailed
		r.Error = &ir.ExecutionError{Kind: ir.KindRuntimeError, Message: haltMessage(err)}
	}
	t.result = r
	return r
}

func asException(err error, target **value.Exception) bool {
	if interp.IsHalt(err) {
		return false
	}
	exc, ok := value.AsException(err)
	*target = exc
	return ok
}

func timeoutMessage(err error) string {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Error()
	}
	return ErrTimeout.Error()
}

func haltMessage(err error) string {
	var halt *interp.HaltError
	if errors.As(err, &halt) {
		return halt.Cause.Error()
	}
	return err.Error()
}
