package store

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/ir"
)

// Save archives a finalized trace.
// Uses ON CONFLICT(trace_id) DO NOTHING for idempotency: saving a trace ID
// that is already stored leaves the first row untouched and reports
// inserted=false.
//
// The result is stored as canonical JSON, so the stored text hashes the
// same on every platform.
func (s *Store) Save(ctx context.Context, r *ir.TraceResult, depth ir.Depth) (inserted bool, err error) {
	if r == nil || r.TraceID == "" {
		return false, fmt.Errorf("save trace: missing trace ID")
	}

	resultJSON, err := marshalResult(r)
	if err != nil {
		return false, fmt.Errorf("save trace %s: %w", r.TraceID, err)
	}
	traceHash, err := ir.TraceHash(r)
	if err != nil {
		return false, fmt.Errorf("save trace %s: %w", r.TraceID, err)
	}
	if depth == "" {
		depth = ir.DepthBeginner
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO traces
		(trace_id, source_hash, trace_hash, status, step_count, seed, depth,
		 duration_ms, result, engine_version, format_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trace_id) DO NOTHING
	`,
		r.TraceID,
		ir.SourceHash(r.Source),
		traceHash,
		r.Status(),
		r.StepCount,
		r.Seed,
		string(depth),
		r.DurationMs,
		resultJSON,
		ir.EngineVersion,
		ir.FormatVersion,
		formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("save trace %s: %w", r.TraceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save trace %s: rows affected: %w", r.TraceID, err)
	}
	return n > 0, nil
}

// Delete removes an archived trace. Deleting an unknown ID returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, traceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE trace_id = ?`, traceID)
	if err != nil {
		return fmt.Errorf("delete trace %s: %w", traceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trace %s: rows affected: %w", traceID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete trace %s: %w", traceID, ErrNotFound)
	}
	return nil
}
