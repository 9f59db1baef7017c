package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/queryir"
	"github.com/roach88/stepwise/internal/querysql"
)

// Record is the summary row of an archived trace.
type Record struct {
	Seq           int64     `json:"seq"`
	TraceID       string    `json:"trace_id"`
	SourceHash    string    `json:"source_hash"`
	TraceHash     string    `json:"trace_hash"`
	Status        string    `json:"status"`
	StepCount     int       `json:"step_count"`
	Seed          int64     `json:"seed"`
	Depth         ir.Depth  `json:"depth"`
	DurationMs    int64     `json:"duration_ms"`
	EngineVersion string    `json:"engine_version"`
	FormatVersion string    `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Entry is an archived trace with its summary.
type Entry struct {
	Record
	Result *ir.TraceResult `json:"result"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	SourceHash string
	Status     string
	Limit      int
}

var recordFields = []string{
	"seq", "trace_id", "source_hash", "trace_hash", "status", "step_count", "seed", "depth",
	"duration_ms", "engine_version", "format_version", "created_at",
}

var recordColumns = strings.Join(recordFields, ", ")

// listQuery is the archive query behind List.
func listQuery(f Filter) queryir.Select {
	var bySource, byStatus queryir.Predicate
	if f.SourceHash != "" {
		bySource = queryir.Equals{Field: "source_hash", Value: f.SourceHash}
	}
	if f.Status != "" {
		byStatus = queryir.Equals{Field: "status", Value: f.Status}
	}
	return queryir.Select{
		From:    "traces",
		Columns: recordFields,
		Filter:  queryir.Where(bySource, byStatus),
		OrderBy: []queryir.Order{{Field: "seq", Desc: true}},
		Limit:   f.Limit,
	}
}

// Get retrieves an archived trace by ID.
// Returns an error matching ErrNotFound if no trace has that ID.
func (s *Store) Get(ctx context.Context, traceID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`, result
		FROM traces
		WHERE trace_id = ?
	`, traceID)

	var (
		e          Entry
		created    string
		resultJSON string
	)
	err := row.Scan(
		&e.Seq, &e.TraceID, &e.SourceHash, &e.TraceHash, &e.Status, &e.StepCount, &e.Seed, &e.Depth,
		&e.DurationMs, &e.EngineVersion, &e.FormatVersion, &created, &resultJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get trace %s: %w", traceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trace %s: %w", traceID, err)
	}

	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("get trace %s: %w", traceID, err)
	}
	if e.Result, err = unmarshalResult(resultJSON); err != nil {
		return nil, fmt.Errorf("get trace %s: %w", traceID, err)
	}
	return &e, nil
}

// List returns archived trace summaries, newest first (ORDER BY seq DESC).
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	query, args, err := querysql.Compile(listQuery(f))
	if err != nil {
		return nil, fmt.Errorf("build trace query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return records, nil
}

// Count returns the number of archived traces.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traces`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count traces: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec     Record
		created string
	)
	err := rows.Scan(
		&rec.Seq, &rec.TraceID, &rec.SourceHash, &rec.TraceHash, &rec.Status, &rec.StepCount, &rec.Seed, &rec.Depth,
		&rec.DurationMs, &rec.EngineVersion, &rec.FormatVersion, &created,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan trace: %w", err)
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return Record{}, err
	}
	return rec, nil
}
