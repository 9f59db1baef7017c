package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// marshalResult converts a TraceResult to canonical JSON TEXT for storage.
func marshalResult(r *ir.TraceResult) (string, error) {
	data, err := ir.MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalResult parses a stored TraceResult. Typed values decode by
// kind, so ints come back as int64 and the trace hash is unchanged.
func unmarshalResult(data string) (*ir.TraceResult, error) {
	var r ir.TraceResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	if r.Steps == nil {
		r.Steps = []ir.Step{}
	}
	if r.SourceLines == nil {
		r.SourceLines = []string{}
	}
	return &r, nil
}

// formatTime renders created_at. RFC 3339 with nanoseconds in UTC sorts
// lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}
