package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/stepwise/internal/ir"
)

// ErrNotReplayable is returned for a trace whose outcome depended on wall
// time and so cannot be reproduced.
var ErrNotReplayable = errors.New("trace is not replayable")

// ReplayResult compares an archived trace with a fresh run of its source.
type ReplayResult struct {
	Original     *ir.TraceResult
	Replayed     *ir.TraceResult
	OriginalHash string
	ReplayedHash string

	// Divergence is the index of the first step that differs, 0 when the
	// step lists agree. Two traces can agree step for step and still
	// differ in their terminal state.
	Divergence int
}

// Identical reports whether the replay reproduced the original exactly.
func (r *ReplayResult) Identical() bool {
	return r.OriginalHash == r.ReplayedHash
}

// Replay re-traces original.Source with the recorded seed and checks that
// the result is the same trace.
//
// Tracing is deterministic given source, seed and step cap: step indices
// come from a per-trace clock, set iteration follows insertion order and
// the random module draws from the recorded seed. A truncated original is
// replayed with its own step count as the cap. Timed-out traces return
// ErrNotReplayable.
func (e *Engine) Replay(ctx context.Context, original *ir.TraceResult) (*ReplayResult, error) {
	if original == nil {
		return nil, fmt.Errorf("replay: nil trace")
	}
	if original.Error != nil && original.Error.Kind == ir.KindTimeoutError {
		return nil, fmt.Errorf("replay %s: %w", original.TraceID, ErrNotReplayable)
	}

	limit := max(e.maxSteps, original.StepCount)
	if original.Truncated {
		limit = original.StepCount
	}
	replayed := e.Trace(ctx, original.Source, Seed(original.Seed), MaxSteps(limit))

	origHash, err := ir.TraceHash(original)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", original.TraceID, err)
	}
	newHash, err := ir.TraceHash(replayed)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", original.TraceID, err)
	}

	res := &ReplayResult{
		Original:     original,
		Replayed:     replayed,
		OriginalHash: origHash,
		ReplayedHash: newHash,
	}
	if origHash != newHash {
		res.Divergence, err = firstDivergence(original.Steps, replayed.Steps)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", original.TraceID, err)
		}
	}
	return res, nil
}

// firstDivergence returns the index of the first step whose canonical form
// differs, or 0 when one list is a prefix of the other and they have the
// same length.
func firstDivergence(a, b []ir.Step) (int, error) {
	n := min(len(a), len(b))
	for i := range n {
		x, err := ir.MarshalCanonical(a[i])
		if err != nil {
			return 0, err
		}
		y, err := ir.MarshalCanonical(b[i])
		if err != nil {
			return 0, err
		}
		if string(x) != string(y) {
			return i + 1, nil
		}
	}
	if len(a) != len(b) {
		return n + 1, nil
	}
	return 0, nil
}
