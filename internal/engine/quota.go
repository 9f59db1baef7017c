package engine

// StepBudget tracks the number of steps recorded for one trace and
// enforces the max steps limit.
//
// Each execution gets its own StepBudget from the Governor. The tracer
// takes one unit before recording every step; the first refused Take
// stops the run, which bounds both the step list and the output size no
// matter how long the script would otherwise run.
//
// StepBudget is not safe for concurrent use; the tracer serializes access
// under its own lock.
type StepBudget struct {
	maxSteps int // Maximum steps for this trace
	used     int // Steps recorded so far
}

// NewStepBudget creates a budget allowing maxSteps steps. A non-positive
// limit selects DefaultMaxSteps.
func NewStepBudget(maxSteps int) *StepBudget {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &StepBudget{maxSteps: maxSteps}
}

// Take consumes one step.
//
// Returns StepsExceededError (matching ErrStepLimit) once the budget is
// spent. A refused Take does not consume anything.
func (b *StepBudget) Take() error {
	if b.used >= b.maxSteps {
		return &StepsExceededError{Steps: b.used, Limit: b.maxSteps}
	}
	b.used++
	return nil
}

// Used returns the number of steps taken.
func (b *StepBudget) Used() int {
	return b.used
}

// MaxSteps returns the maximum steps limit.
func (b *StepBudget) MaxSteps() int {
	return b.maxSteps
}

// Exhausted reports whether the next Take will be refused.
func (b *StepBudget) Exhausted() bool {
	return b.used >= b.maxSteps
}
