package engine

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// DefaultGrace is how long the governor waits past the deadline for a run
// to unwind before abandoning it.
const DefaultGrace = 250 * time.Millisecond

// Bounded is an execution the governor can run under bounds.
type Bounded interface {
	// Run executes to completion, polling ctx at every safepoint and
	// spending budget once per recorded step.
	Run(ctx context.Context, budget *StepBudget) *ir.TraceResult
	// Abandon returns the partial result of a run that missed its
	// deadline by more than the grace period. It is called from the
	// governor's goroutine while Run may still be executing.
	Abandon(cause error) *ir.TraceResult
}

// Governor enforces the step cap and the wall-clock limit of one
// execution.
//
// The deadline is delivered cooperatively: the run's context expires with
// a TimeoutError cause and the interpreter halts at its next safepoint. A
// run that fails to reach a safepoint (a single built-in call grinding
// through a huge value) is abandoned once the deadline plus Grace has
// passed; its goroutine finishes in the background and records nothing
// more.
//
// A Governor holds no per-execution state; the zero value is ready to use
// and one value may bound any number of concurrent executions.
type Governor struct {
	Grace time.Duration
}

// WithBounds runs b with a fresh StepBudget of maxSteps and a deadline of
// timeout, and returns its result, or its partial result on hard abort.
func (g Governor) WithBounds(ctx context.Context, maxSteps int, timeout time.Duration, b Bounded) *ir.TraceResult {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, &TimeoutError{Timeout: timeout})
	defer cancel()

	budget := NewStepBudget(maxSteps)
	done := make(chan *ir.TraceResult, 1)
	go func() {
		done <- b.Run(ctx, budget)
	}()

	grace := g.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	abortAfter := time.Duration(math.MaxInt64)
	if timeout < abortAfter-grace {
		abortAfter = timeout + grace
	}
	watchdog := time.NewTimer(abortAfter)
	defer watchdog.Stop()

	select {
	case r := <-done:
		return r
	case <-watchdog.C:
		cause := context.Cause(ctx)
		slog.Warn("execution abandoned after deadline",
			"timeout", timeout,
			"grace", grace,
			"cause", cause,
			"event", "hard_abort",
		)
		return b.Abandon(cause)
	}
}
