package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
)

// createTestStore creates a new store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := Open(path, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// traceScript runs src through an engine that stamps id on the result.
func traceScript(t *testing.T, id, src string) *ir.TraceResult {
	t.Helper()
	e := engine.New(engine.WithTraceIDs(engine.ConstantGenerator(id)))
	return e.Trace(context.Background(), src, engine.Seed(7))
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='traces'").Scan(&name)
	if err != nil {
		t.Errorf("traces table not found after idempotent opens: %v", err)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_MigratesOldArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// Pretend the archive predates the status index.
	if _, err := s.db.Exec("DROP INDEX idx_traces_status"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_traces_status'").Scan(&name)
	if err != nil {
		t.Errorf("status index not recreated: %v", err)
	}
	if v, _ := s.pragma("user_version"); v != fmt.Sprint(currentSchemaVersion) {
		t.Errorf("user_version = %s, want %d", v, currentSchemaVersion)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		got, err := s.pragma(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.expected {
			t.Errorf("PRAGMA %s = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestSaveAndGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := "xs = [1, 2]\nd = {'a': xs}\ndef f(n):\n    return n * 2\ny = f(3)\nprint(y)\n"
	orig := traceScript(t, "trace-1", src)
	if !orig.Completed {
		t.Fatalf("trace did not complete: %v", orig.Error)
	}

	inserted, err := s.Save(ctx, orig, ir.DepthAdvanced)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !inserted {
		t.Fatal("Save() inserted = false on first write")
	}

	got, err := s.Get(ctx, "trace-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	wantHash, _ := ir.TraceHash(orig)
	gotHash, err := ir.TraceHash(got.Result)
	if err != nil {
		t.Fatalf("TraceHash() failed: %v", err)
	}
	if gotHash != wantHash {
		t.Errorf("trace hash changed across storage: %s != %s", gotHash, wantHash)
	}
	if got.TraceHash != wantHash {
		t.Errorf("stored trace_hash = %s, want %s", got.TraceHash, wantHash)
	}
	if got.SourceHash != ir.SourceHash(src) {
		t.Errorf("source_hash = %s, want %s", got.SourceHash, ir.SourceHash(src))
	}
	if got.Status != "completed" || got.StepCount != orig.StepCount || got.Seed != 7 {
		t.Errorf("record = %+v", got.Record)
	}
	if got.Depth != ir.DepthAdvanced {
		t.Errorf("depth = %q, want advanced", got.Depth)
	}
	if got.EngineVersion != ir.EngineVersion || got.FormatVersion != ir.FormatVersion {
		t.Errorf("versions = %s/%s", got.EngineVersion, got.FormatVersion)
	}
	if !got.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("created_at = %v", got.CreatedAt)
	}
	if got.Result.Stdout != "6\n" {
		t.Errorf("stdout = %q", got.Result.Stdout)
	}

	names := got.Result.Steps[1].Variables.Names()
	if len(names) != 2 || names[0] != "xs" || names[1] != "d" {
		t.Errorf("variable order not preserved: %v", names)
	}
}

func TestSave_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := traceScript(t, "trace-dup", "x = 1\n")

	for i, want := range []bool{true, false, false} {
		inserted, err := s.Save(ctx, r, "")
		if err != nil {
			t.Fatalf("Save() #%d failed: %v", i, err)
		}
		if inserted != want {
			t.Errorf("Save() #%d inserted = %v, want %v", i, inserted, want)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSave_RejectsMissingID(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.Save(context.Background(), ir.NewTraceResult("", ir.NewScript("x = 1")), ""); err == nil {
		t.Error("Save() accepted a trace without ID")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	traces := []*ir.TraceResult{
		traceScript(t, "t1", "x = 1\n"),
		traceScript(t, "t2", "1/0\n"),
		traceScript(t, "t3", "x = 1\n"),
		traceScript(t, "t4", "def f(:\n"),
	}
	for _, r := range traces {
		if _, err := s.Save(ctx, r, ir.DepthBeginner); err != nil {
			t.Fatalf("Save(%s) failed: %v", r.TraceID, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"t4", "t3", "t2", "t1"}},
		{"limit", Filter{Limit: 2}, []string{"t4", "t3"}},
		{"by source", Filter{SourceHash: ir.SourceHash("x = 1\n")}, []string{"t3", "t1"}},
		{"by status", Filter{Status: "failed"}, []string{"t4", "t2"}},
		{"no match", Filter{Status: "truncated"}, []string{}},
		{"source and status", Filter{SourceHash: ir.SourceHash("x = 1\n"), Status: "completed", Limit: 1}, []string{"t3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			got := []string{}
			for _, r := range records {
				got = append(got, r.TraceID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestList_NegativeLimit(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.List(context.Background(), Filter{Limit: -1}); err == nil {
		t.Error("List() with negative limit succeeded, want error")
	}
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, traceScript(t, "gone", "x = 1\n"), ""); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestReplayFromArchive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := "import random\nroll = random.randint(1, 6)\n"
	orig := traceScript(t, "archived", src)
	if _, err := s.Save(ctx, orig, ""); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	entry, err := s.Get(ctx, "archived")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	e := engine.New(engine.WithTraceIDs(engine.ConstantGenerator("replayed")))
	res, err := e.Replay(ctx, entry.Result)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !res.Identical() {
		t.Errorf("replay diverged at step %d", res.Divergence)
	}
}
