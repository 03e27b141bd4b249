// Package interp executes syntax trees.
//
// An Engine holds the collaborators shared by every run: the built-in
// catalogue, the definition registry, the query bridge and the print sink.
// Each Run or Call owns its scopes, so one Engine serves concurrent runs.
package interp

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/bridge"
	"github.com/plesql/plesql/internal/builtins"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/registry"
	"github.com/plesql/plesql/internal/value"
)

// DefaultMaxCallDepth bounds nested routine invocations.
const DefaultMaxCallDepth = 256

// Sink receives PRINT output.
type Sink interface {
	Emit(ctx context.Context, message string, severity ast.Severity) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, message string, severity ast.Severity) error

func (f SinkFunc) Emit(ctx context.Context, message string, severity ast.Severity) error {
	return f(ctx, message, severity)
}

// PrintLine is one PRINT statement's output.
type PrintLine struct {
	Severity ast.Severity `json:"severity"`
	Message  string       `json:"message"`
}

// Result describes a finished run.
type Result struct {
	RunID string
	// Value is the routine's return value for Call, NULL for Run.
	Value value.Value
	// Out holds the final OUT and INOUT parameter values for Call.
	Out      *value.Document
	Output   []PrintLine
	Duration time.Duration
}

// Engine runs programs. It is safe for concurrent use.
type Engine struct {
	builtins *builtins.Registry
	defs     *registry.Registry
	bridge   bridge.Bridge
	sink     Sink
	logger   *slog.Logger
	maxDepth int
	maxLoop  int
	timeout  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

func WithBuiltins(r *builtins.Registry) Option {
	return func(e *Engine) { e.builtins = r }
}

func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) { e.defs = r }
}

func WithBridge(b bridge.Bridge) Option {
	return func(e *Engine) { e.bridge = b }
}

func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxCallDepth sets the nesting limit for routine calls. Values below
// one keep the default.
func WithMaxCallDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithMaxLoopIterations bounds the iterations of any single loop. Zero
// means unlimited.
func WithMaxLoopIterations(n int) Option {
	return func(e *Engine) { e.maxLoop = n }
}

// WithTimeout bounds the wall time of each Run and Call. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an engine. Without options it has the standard built-ins,
// an empty in-memory registry and no query bridge.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builtins == nil {
		e.builtins = builtins.Default()
	}
	if e.defs == nil {
		e.defs = registry.New(registry.WithLogger(e.logger))
	}
	if e.bridge == nil {
		e.bridge = bridge.Unavailable{}
	}
	return e
}

// Builtins returns the built-in catalogue.
func (e *Engine) Builtins() *builtins.Registry { return e.builtins }

// Registry returns the definition registry.
func (e *Engine) Registry() *registry.Registry { return e.defs }

func (e *Engine) newRun() *run {
	id := uuid.NewString()
	return &run{
		e:      e,
		id:     id,
		logger: e.logger.With("run_id", id),
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// Run checks and executes prog. The returned Result is never nil; on
// failure it carries the output produced before the error. Errors are
// *errs.Error values.
func (e *Engine) Run(ctx context.Context, prog *ast.Program) (*Result, error) {
	r := e.newRun()
	start := time.Now()
	res := &Result{RunID: r.id, Value: value.Null{}}

	if issues := Check(prog); len(issues) > 0 {
		r.logger.Debug("run rejected", "issues", len(issues))
		return res, issues[0]
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	r.logger.Debug("run started", "statements", len(prog.Body))
	sig := r.execBlock(ctx, prog.Body, r.rootScope())
	res.Output = r.output
	res.Duration = time.Since(start)

	err := sig.topLevelError()
	r.finish(res, err)
	return res, err
}

// Call invokes a stored routine or a built-in by name with host values.
// OUT parameters start as NULL; their final values are reported in
// Result.Out together with INOUT parameters.
func (e *Engine) Call(ctx context.Context, name string, args []value.Value) (*Result, error) {
	r := e.newRun()
	start := time.Now()
	res := &Result{RunID: r.id, Value: value.Null{}}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	r.logger.Debug("call started", "name", name, "args", len(args))
	var err error
	if routine, ok := e.defs.Lookup(name); ok {
		var frame *frameResult
		frame, err = r.enter(ctx, routine, args)
		if err == nil {
			res.Value = frame.ret
			res.Out = frame.outDocument()
		}
	} else if _, ok := e.builtins.Lookup(name); ok {
		var v value.Value
		v, err = e.builtins.Invoke(ctx, name, args).Await(ctx)
		if err == nil {
			res.Value = v
		}
	} else {
		err = errs.Newf(errs.KindName, "unknown function or procedure %s", name)
	}
	res.Output = r.output
	res.Duration = time.Since(start)

	if err != nil {
		err = errs.From(err)
	}
	r.finish(res, err)
	return res, err
}

func (r *run) finish(res *Result, err error) {
	if err != nil {
		r.logger.Info("run failed", "kind", errs.KindOf(err), "duration", res.Duration, "error", err)
		return
	}
	r.logger.Info("run finished", "duration", res.Duration, "prints", len(res.Output))
}
