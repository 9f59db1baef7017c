package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Sentinel errors for the two bounds the engine enforces. Both reach the
// interpreter as halts, so a script cannot catch them.
var (
	// ErrStepLimit is returned by the tracer when the step budget is spent.
	ErrStepLimit = errors.New("step limit reached")

	// ErrTimeout is the cause of a run stopped by its deadline.
	ErrTimeout = errors.New("execution timed out")

	// ErrAbandoned is returned by the tracer to a run the governor has
	// already given up on.
	ErrAbandoned = errors.New("execution abandoned")
)

// StepsExceededError is returned when a trace would grow past its max
// steps budget.
//
// The trace stops gracefully: every step recorded so far is kept and the
// result is marked truncated.
type StepsExceededError struct {
	Steps int // Steps recorded when the budget ran out
	Limit int // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("trace exceeded max steps: %d steps recorded, limit %d", e.Steps, e.Limit)
}

// Unwrap lets errors.Is match ErrStepLimit.
func (e *StepsExceededError) Unwrap() error { return ErrStepLimit }

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

// TimeoutError is the context cause installed by the governor. Its message
// is what the trace reports as the TimeoutError message.
type TimeoutError struct {
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	secs := strconv.FormatFloat(e.Timeout.Seconds(), 'f', -1, 64)
	unit := "seconds"
	if secs == "1" {
		unit = "second"
	}
	return fmt.Sprintf("Code execution exceeded the time limit (%s %s)", secs, unit)
}

// Unwrap lets errors.Is match ErrTimeout.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsTimeout reports whether err stems from an expired execution deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
