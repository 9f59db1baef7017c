package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed trace ID, a fixed seed and a
// deterministic clock.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Trace the script under the scenario's seed and bounds
// 2. Check the expect clause and the assertions
// 3. Archive the trace and read it back (the trace hash must survive)
// 4. Replay the trace (it must reproduce step for step)
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}

	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	traceID := scenario.TraceID
	if traceID == "" {
		traceID = DefaultTraceID
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		engine: engine.New(
			engine.WithTraceIDs(engine.ConstantGenerator(traceID)),
			engine.WithLogger(logger),
		),
		clock:  clock,
		logger: logger,
	}

	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	opts := []engine.TraceOption{engine.Seed(scenario.Seed)}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.MaxSteps(scenario.MaxSteps))
	}
	if scenario.Timeout > 0 {
		opts = append(opts, engine.Timeout(scenario.Timeout))
	}

	trace := h.engine.Trace(ctx, scenario.Source, opts...)
	result := NewResult(trace)

	for _, msg := range checkExpect(trace, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(trace.Steps, scenario.Assertions) {
		result.AddError(msg)
	}

	hash, err := h.checkArchive(ctx, trace)
	if err != nil {
		result.AddError(err.Error())
	}
	result.TraceHash = hash

	outcome, err := h.checkReplay(ctx, trace)
	if err != nil {
		result.AddError(err.Error())
	}
	result.Replay = outcome

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"status", trace.Status(),
		"steps", trace.StepCount,
	)
	return result, nil
}

// checkArchive stores the trace, reads it back and returns the hash of
// the stored copy.
func (h *Harness) checkArchive(ctx context.Context, trace *ir.TraceResult) (string, error) {
	if _, err := h.store.Save(ctx, trace, ir.DepthBeginner); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	entry, err := h.store.Get(ctx, trace.TraceID)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	want, err := ir.TraceHash(trace)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	got, err := ir.TraceHash(entry.Result)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	if got != want {
		return got, fmt.Errorf("archive: trace hash changed across storage (%s != %s)", got, want)
	}
	return got, nil
}

// checkReplay re-runs the trace from its recorded seed. Timed-out traces
// depend on wall-clock speed and are not checked.
func (h *Harness) checkReplay(ctx context.Context, trace *ir.TraceResult) (string, error) {
	res, err := h.engine.Replay(ctx, trace)
	if errors.Is(err, engine.ErrNotReplayable) {
		return ReplaySkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("replay: %w", err)
	}
	if !res.Identical() {
		return ReplayDiverged, fmt.Errorf("replay: diverged at step %d", res.Divergence)
	}
	return ReplayIdentical, nil
}
