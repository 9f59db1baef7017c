package harness

import "github.com/roach88/stepwise/internal/ir"

// Replay outcomes recorded on a Result.
const (
	ReplayIdentical = "identical"
	ReplayDiverged  = "diverged"
	ReplaySkipped   = "skipped" // timed-out traces are not replayed
)

// Result is the outcome of one scenario.
type Result struct {
	// Pass is true when the expect clause, every assertion, the archive
	// round trip and the replay all hold.
	Pass bool `json:"pass"`

	Trace *ir.TraceResult `json:"trace"`

	// TraceHash is the hash of Trace as read back from the archive.
	TraceHash string `json:"trace_hash,omitempty"`

	Replay string `json:"replay,omitempty"`

	// Errors lists every failed check. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult starts a passing result for trace.
func NewResult(trace *ir.TraceResult) *Result {
	return &Result{Pass: true, Trace: trace, Errors: []string{}}
}

// AddError records a failed check.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Status is the trace status, or "" when there is no trace.
func (r *Result) Status() string {
	if r.Trace == nil {
		return ""
	}
	return r.Trace.Status()
}
