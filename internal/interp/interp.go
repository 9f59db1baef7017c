// Package interp evaluates a compiled Program.
//
// The evaluator is a tree walker over the guarded tree produced by package
// compiler. It never reads an attribute, indexes a container, iterates,
// unpacks or applies an augmented operator except by calling the
// capability.Guard it was given, and it resolves free names only through
// the frame chain, the module globals and the capability.Catalog.
//
// EXECUTION MODEL:
//
// One Run is one goroutine, run to completion. Before every statement,
// loop iteration and user call the evaluator polls a safepoint: the
// context and (through the Hook) the step budget. A failed safepoint is
// a halt. Halts are plain Go errors, never *value.Exception, so no
// try/except in the script can intercept them and finally blocks do not
// run while a halt unwinds.
//
// Observation points are statement-level: see Hook.
package interp

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/roach88/stepwise/internal/capability"
	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/value"
)

// DefaultMaxDepth is the default user call depth limit.
const DefaultMaxDepth = 200

// ModuleName is the Frame.Function of the top-level frame.
const ModuleName = "<module>"

// Hook observes execution. Every method may return an error to halt the
// run; the error is returned from Run unchanged.
type Hook interface {
	// OnCall runs on entering a user function, after parameters are bound.
	OnCall(fr *Frame) error
	// OnLine runs when a simple statement finishes (successfully or not)
	// and when a compound header evaluates its test or binds its target.
	OnLine(fr *Frame, line int) error
	// OnReturn runs on leaving a user function. result is None when the
	// frame unwinds by exception.
	OnReturn(fr *Frame, result value.Value) error
	// OnException runs once per frame an exception propagates through, at
	// the statement it escaped from.
	OnException(fr *Frame, line int, exc *value.Exception) error
}

// NopHook ignores every event.
type NopHook struct{}

func (NopHook) OnCall(*Frame) error                             { return nil }
func (NopHook) OnLine(*Frame, int) error                        { return nil }
func (NopHook) OnReturn(*Frame, value.Value) error              { return nil }
func (NopHook) OnException(*Frame, int, *value.Exception) error { return nil }

// Options configures one Run. Zero values select the defaults.
type Options struct {
	Catalog  *capability.Catalog
	Guard    capability.Guard
	Hook     Hook
	Stdout   io.Writer
	MaxDepth int
	Rand     *rand.Rand
}

// HaltError reports that the run stopped at a safepoint. Cause is the
// context cause (deadline or cancellation) or the hook's error.
type HaltError struct {
	Cause error
}

func (e *HaltError) Error() string { return fmt.Sprintf("execution halted: %v", e.Cause) }
func (e *HaltError) Unwrap() error { return e.Cause }

// Run executes prog. It returns nil on normal completion, the escaping
// *value.Exception when the script fails, or a halt error.
func Run(ctx context.Context, prog *compiler.Program, opts Options) error {
	th := newThread(ctx, opts)
	fr := th.moduleFrame()
	th.frames = append(th.frames, fr)
	_, err := th.execBlock(fr, prog.Body)
	return err
}

// thread is the value.Thread of one Run.
type thread struct {
	ctx      context.Context
	catalog  *capability.Catalog
	guard    capability.Guard
	hook     Hook
	out      io.Writer
	rnd      *rand.Rand
	maxDepth int

	globals *namespace
	frames  []*Frame
}

func newThread(ctx context.Context, opts Options) *thread {
	th := &thread{
		ctx:      ctx,
		catalog:  opts.Catalog,
		guard:    opts.Guard,
		hook:     opts.Hook,
		out:      opts.Stdout,
		rnd:      opts.Rand,
		maxDepth: opts.MaxDepth,
		globals:  newNamespace(),
	}
	if th.catalog == nil {
		th.catalog = capability.Default()
	}
	if th.guard == nil {
		th.guard = capability.DefaultGuard{}
	}
	if th.hook == nil {
		th.hook = NopHook{}
	}
	if th.out == nil {
		th.out = io.Discard
	}
	if th.rnd == nil {
		th.rnd = rand.New(rand.NewSource(1))
	}
	if th.maxDepth <= 0 {
		th.maxDepth = DefaultMaxDepth
	}
	return th
}

func (th *thread) moduleFrame() *Frame {
	return &Frame{Function: ModuleName, locals: th.globals, globals: th.globals}
}

// Call implements value.Thread.
func (th *thread) Call(fn value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	switch f := fn.(type) {
	case *Function:
		return th.callFunction(f, args, kwargs)
	case *value.Builtin:
		return f.Call(th, args, kwargs)
	case *value.Class:
		return f.Call(th, args, kwargs)
	}
	return nil, value.Errorf(value.TypeError, "'%s' object is not callable", value.TypeName(fn))
}

// Print implements value.Thread.
func (th *thread) Print(s string) error {
	if _, err := io.WriteString(th.out, s); err != nil {
		return &HaltError{Cause: fmt.Errorf("write stdout: %w", err)}
	}
	return nil
}

// Check implements value.Thread: the context safepoint.
func (th *thread) Check() error {
	if th.ctx.Err() != nil {
		return &HaltError{Cause: context.Cause(th.ctx)}
	}
	return nil
}

// Rand implements value.Thread.
func (th *thread) Rand() *rand.Rand { return th.rnd }

// current returns the innermost frame.
func (th *thread) current() *Frame { return th.frames[len(th.frames)-1] }

// IsHalt reports whether err stopped the run at a safepoint rather than
// being raised by the script.
func IsHalt(err error) bool {
	if err == nil {
		return false
	}
	_, isExc := value.AsException(err)
	return !isExc
}
