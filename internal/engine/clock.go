package engine

import "sync/atomic"

// StepClock hands out step indices for one trace: 1, 2, 3, ... with no
// gaps or repeats, so indices always run 1..stepCount. It never reads
// wall-clock time.
//
// The tracer takes an index only while holding its lock, which makes
// indices follow append order. The counter is atomic so a watchdog can
// read Last while a run is still unwinding.
type StepClock struct {
	last atomic.Int64
}

// Next returns the index of the next step.
func (c *StepClock) Next() int {
	return int(c.last.Add(1))
}

// Last returns the most recently issued index, or 0 before the first step.
func (c *StepClock) Last() int {
	return int(c.last.Load())
}
