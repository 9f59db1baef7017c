package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/roach88/stepwise/internal/capability"
	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/interp"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/value"
)

// Engine defaults.
const (
	// DefaultMaxSteps is the default maximum number of steps per trace.
	DefaultMaxSteps = 500

	// DefaultTimeout is the default wall-clock limit per trace.
	DefaultTimeout = 5 * time.Second
)

// Engine compiles and traces scripts.
//
// An Engine is immutable after New and safe for concurrent use: every
// Trace call builds its own governor bounds, tracer, RNG and interpreter
// state, and the capability catalog it shares is read-only.
type Engine struct {
	catalog  *capability.Catalog
	guard    capability.Guard
	ids      TraceIDGenerator
	governor Governor
	limits   Limits
	timeout  time.Duration
	maxSteps int
	maxDepth int
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the default per-trace wall-clock limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithMaxSteps sets the default step cap.
//
// Default: 500 steps (DefaultMaxSteps).
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithCallDepth sets the user call depth limit (RecursionError past it).
func WithCallDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithLimits sets the serializer limits.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithTraceIDs sets the trace ID generator (default UUIDv7Generator).
func WithTraceIDs(g TraceIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithCatalog replaces the capability catalog.
func WithCatalog(c *capability.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithGuard replaces the capability guard.
func WithGuard(g capability.Guard) Option {
	return func(e *Engine) {
		e.guard = g
	}
}

// WithGrace sets how long a run may overstay its deadline before the
// governor abandons it.
func WithGrace(d time.Duration) Option {
	return func(e *Engine) {
		e.governor.Grace = d
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		catalog:  capability.Default(),
		guard:    capability.DefaultGuard{},
		ids:      UUIDv7Generator{},
		limits:   DefaultLimits(),
		timeout:  DefaultTimeout,
		maxSteps: DefaultMaxSteps,
		maxDepth: interp.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxSteps <= 0 {
		e.maxSteps = DefaultMaxSteps
	}
	return e
}

// traceConfig holds the per-call settings of one Trace.
type traceConfig struct {
	timeout  time.Duration
	maxSteps int
	seed     int64
	seeded   bool
}

// TraceOption overrides an engine default for one Trace call.
type TraceOption func(*traceConfig)

// Timeout bounds one trace's wall-clock time.
func Timeout(d time.Duration) TraceOption {
	return func(c *traceConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// MaxSteps caps one trace's step count.
func MaxSteps(n int) TraceOption {
	return func(c *traceConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Seed fixes the seed of the random module. Without it each trace draws
// a fresh seed, which is recorded in the result so the run can be
// replayed.
func Seed(seed int64) TraceOption {
	return func(c *traceConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// CompileAndCheck compiles source without running it. It returns nil when
// the script is accepted, or the SyntaxError a trace of it would report.
func (e *Engine) CompileAndCheck(source string) *ir.ExecutionError {
	_, err := compiler.Compile(source)
	if err != nil {
		return syntaxError(err)
	}
	return nil
}

func syntaxError(err error) *ir.ExecutionError {
	if ce, ok := compiler.AsCompileError(err); ok {
		return &ir.ExecutionError{Kind: ir.KindSyntaxError, Message: ce.Message, Line: ce.Line}
	}
	return &ir.ExecutionError{Kind: ir.KindSyntaxError, Message: err.Error()}
}

// Trace compiles and runs source under the engine's bounds and returns its
// trace. Trace never panics and always returns a finalized result: a
// rejected script yields a SyntaxError with no steps; a failing,
// timed-out or truncated run keeps every step recorded before it stopped.
func (e *Engine) Trace(ctx context.Context, source string, opts ...TraceOption) *ir.TraceResult {
	cfg := traceConfig{timeout: e.timeout, maxSteps: e.maxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.seeded {
		cfg.seed = time.Now().UnixNano()
	}

	traceID := e.ids.Generate()
	log := e.logger.With("trace_id", traceID)

	prog, err := compiler.Compile(source)
	if err != nil {
		r := ir.NewTraceResult(traceID, ir.NewScript(source))
		r.Error = syntaxError(err)
		r.Seed = cfg.seed
		log.Info("script rejected",
			"error", r.Error.Message,
			"line", r.Error.Line,
			"event", "compile_error",
		)
		return r
	}

	log.Debug("trace starting",
		"lines", len(prog.Script.Lines),
		"max_steps", cfg.maxSteps,
		"timeout", cfg.timeout,
		"seed", cfg.seed,
	)

	x := &execution{
		engine: e,
		prog:   prog,
		seed:   cfg.seed,
		tracer: NewTracer(traceID, prog.Script, NewSerializer(e.limits), cfg.seed),
	}
	r := e.governor.WithBounds(ctx, cfg.maxSteps, cfg.timeout, x)

	attrs := []any{
		"status", r.Status(),
		"steps", r.StepCount,
		"duration_ms", r.DurationMs,
	}
	switch {
	case r.Truncated:
		log.Info("trace truncated", append(attrs, "limit", cfg.maxSteps, "event", "step_limit")...)
	case r.Error != nil && r.Error.Kind == ir.KindTimeoutError:
		log.Info("trace timed out", append(attrs, "timeout", cfg.timeout, "event", "timeout")...)
	default:
		log.Info("trace finished", attrs...)
	}
	return r
}

// TraceExecution is Trace with the timeout in seconds and the step cap
// given positionally; non-positive values select the defaults.
func (e *Engine) TraceExecution(source string, timeoutSeconds float64, maxSteps int) *ir.TraceResult {
	return e.Trace(context.Background(), source,
		Timeout(Seconds(timeoutSeconds)),
		MaxSteps(maxSteps),
	)
}

// Seconds converts a timeout in seconds to a Duration, saturating at the
// largest Duration. NaN converts to 0.
func Seconds(secs float64) time.Duration {
	switch {
	case math.IsNaN(secs):
		return 0
	case secs >= float64(math.MaxInt64)/float64(time.Second):
		return time.Duration(math.MaxInt64)
	case secs <= float64(math.MinInt64)/float64(time.Second):
		return time.Duration(math.MinInt64)
	}
	return time.Duration(secs * float64(time.Second))
}

// execution is one governed run of a compiled program.
type execution struct {
	engine *Engine
	prog   *compiler.Program
	seed   int64
	tracer *Tracer
}

var _ Bounded = (*execution)(nil)

// Run implements Bounded.
func (x *execution) Run(ctx context.Context, budget *StepBudget) *ir.TraceResult {
	x.tracer.Start(budget)
	return x.tracer.Finish(x.interpret(ctx))
}

// Abandon implements Bounded.
func (x *execution) Abandon(cause error) *ir.TraceResult {
	return x.tracer.Abandon(cause)
}

// interpret runs the program, converting a Go panic inside the
// interpreter into a script-level RuntimeError.
func (x *execution) interpret(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			x.engine.logger.Error("interpreter panic",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
				"event", "panic",
			)
			err = value.Errorf(value.RuntimeError, "internal error: %v", r)
		}
	}()
	return interp.Run(ctx, x.prog, interp.Options{
		Catalog:  x.engine.catalog,
		Guard:    x.engine.guard,
		Hook:     x.tracer,
		Stdout:   x.tracer,
		MaxDepth: x.engine.maxDepth,
		Rand:     rand.New(rand.NewSource(x.seed)),
	})
}
