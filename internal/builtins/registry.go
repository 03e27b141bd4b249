// Package builtins holds the native functions scripts can call.
//
// A Registry is built once at startup and passed to the engine. Every
// function is asynchronous in contract: Invoke returns a future, and
// synchronous implementations hand back one that is already resolved.
// Argument count and argument types are validated centrally before an
// implementation runs, so a bad call always fails with an error and never
// reaches the implementation.
package builtins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/plesql/plesql/internal/async"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

// Param describes one declared parameter.
type Param struct {
	Name     string
	Type     value.Type
	Optional bool
}

// Impl computes a result asynchronously. Arguments have already been
// validated, coerced and copied.
type Impl func(ctx context.Context, args []value.Value) *async.Future[value.Value]

// SyncImpl is an implementation that finishes before returning.
type SyncImpl func(ctx context.Context, args []value.Value) (value.Value, error)

// Sync adapts a synchronous implementation to Impl.
func Sync(fn SyncImpl) Impl {
	return func(ctx context.Context, args []value.Value) *async.Future[value.Value] {
		v, err := fn(ctx, args)
		if err != nil {
			return async.Failed[value.Value](err)
		}
		return async.Resolved(v)
	}
}

// Function is a registered built-in.
type Function struct {
	Name     string
	Category string
	Doc      string
	Params   []Param
	// Variadic lets the last parameter repeat.
	Variadic bool
	// Strict functions return NULL when any argument is NULL.
	Strict bool
	Impl   Impl
}

// MinArgs is the number of required parameters.
func (f *Function) MinArgs() int {
	n := 0
	for _, p := range f.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// MaxArgs is the number of declared parameters, or -1 when variadic.
func (f *Function) MaxArgs() int {
	if f.Variadic {
		return -1
	}
	return len(f.Params)
}

// Signature renders the function the way the docs show it,
// e.g. SUBSTR(s STRING, start INT[, len INT]).
func (f *Function) Signature() string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	closing := 0
	for i, p := range f.Params {
		if p.Optional {
			sb.WriteByte('[')
			closing++
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		sb.WriteByte(' ')
		sb.WriteString(p.Type.String())
		if f.Variadic && i == len(f.Params)-1 {
			sb.WriteString("...")
		}
	}
	sb.WriteString(strings.Repeat("]", closing))
	sb.WriteByte(')')
	return sb.String()
}

func (f *Function) paramFor(i int) Param {
	if i >= len(f.Params) {
		return f.Params[len(f.Params)-1]
	}
	return f.Params[i]
}

// Registry maps upper-cased names to functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the clock used by CURRENT_DATE and CURRENT_TIMESTAMP.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{funcs: make(map[string]*Function), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a registry holding the standard catalogue.
func Default(opts ...Option) *Registry {
	r := New(opts...)
	for _, f := range r.catalogue() {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) catalogue() []*Function {
	var all []*Function
	all = append(all, stringFunctions()...)
	all = append(all, numberFunctions()...)
	all = append(all, r.dateFunctions()...)
	all = append(all, arrayFunctions()...)
	all = append(all, documentFunctions()...)
	all = append(all, miscFunctions()...)
	return all
}

// Register adds f, replacing any function of the same name.
func (r *Registry) Register(f *Function) error {
	if f == nil || strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("built-in needs a name")
	}
	if f.Impl == nil {
		return fmt.Errorf("built-in %s has no implementation", f.Name)
	}
	if f.Variadic && len(f.Params) == 0 {
		return fmt.Errorf("variadic built-in %s needs at least one parameter", f.Name)
	}
	seenOptional := false
	for _, p := range f.Params {
		if p.Optional {
			seenOptional = true
		} else if seenOptional {
			return fmt.Errorf("built-in %s: required parameter %s follows an optional one", f.Name, p.Name)
		}
	}
	name := strings.ToUpper(f.Name)
	f.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = f
	return nil
}

// RegisterSync is a shorthand for registering a synchronous function.
func (r *Registry) RegisterSync(name string, params []Param, fn SyncImpl) error {
	return r.Register(&Function{Name: name, Params: params, Impl: Sync(fn)})
}

// Lookup finds a function by case-insensitive name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[strings.ToUpper(name)]
	return f, ok
}

// List returns every function sorted by category, then name.
func (r *Registry) List() []*Function {
	r.mu.RLock()
	out := make([]*Function, 0, len(r.funcs))
	for _, f := range r.funcs {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Invoke validates args against the named function and runs it.
func (r *Registry) Invoke(ctx context.Context, name string, args []value.Value) *async.Future[value.Value] {
	f, ok := r.Lookup(name)
	if !ok {
		return async.Failed[value.Value](errs.Newf(errs.KindName, "unknown function %s", strings.ToUpper(name)))
	}
	prepared, err := f.prepare(args)
	if err != nil {
		return async.Failed[value.Value](err)
	}
	if f.Strict {
		for _, a := range prepared {
			if value.IsNull(a) {
				return async.Resolved[value.Value](value.Null{})
			}
		}
	}
	return f.call(ctx, prepared)
}

// call runs the implementation, turning a panic into a RuntimeError.
func (f *Function) call(ctx context.Context, args []value.Value) (fut *async.Future[value.Value]) {
	defer func() {
		if p := recover(); p != nil {
			fut = async.Failed[value.Value](errs.Newf(errs.KindRuntime, "%s failed: %v", f.Name, p))
		}
	}()
	return f.Impl(ctx, args)
}

// prepare checks arity, then copies and coerces each argument.
func (f *Function) prepare(args []value.Value) ([]value.Value, error) {
	lo, hi := f.MinArgs(), f.MaxArgs()
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return nil, errs.Newf(errs.KindArity, "%s expects %s, got %d", f.Name, arityText(lo, hi), len(args))
	}
	out := make([]value.Value, len(args))
	for i, a := range args {
		p := f.paramFor(i)
		c, err := value.Coerce(value.Clone(a), p.Type)
		if err != nil {
			return nil, errs.Newf(errs.KindType, "%s argument %s: expected %s, got %s", f.Name, p.Name, p.Type, value.TypeOf(a))
		}
		out[i] = c
	}
	return out, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d argument(s)", lo)
	case lo == hi:
		return fmt.Sprintf("%d argument(s)", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

// Helpers for catalogue definitions.

func param(name string, t value.TypeName) Param {
	return Param{Name: name, Type: value.Of(t)}
}

func optional(name string, t value.TypeName) Param {
	return Param{Name: name, Type: value.Of(t), Optional: true}
}

func argOr(args []value.Value, i int, def value.Value) value.Value {
	if i < len(args) && !value.IsNull(args[i]) {
		return args[i]
	}
	return def
}

func toFloat(v value.Value) float64 {
	switch x := v.(type) {
	case value.Int:
		return float64(x)
	case value.Float:
		return float64(x)
	}
	return 0
}

func arrayArg(fn string, args []value.Value, i int) (*value.Array, error) {
	a, ok := args[i].(*value.Array)
	if !ok {
		return nil, errs.Newf(errs.KindType, "%s expects an ARRAY, got %s", fn, value.TypeOf(args[i]))
	}
	return a, nil
}

func documentArg(fn string, args []value.Value, i int) (*value.Document, error) {
	d, ok := args[i].(*value.Document)
	if !ok {
		return nil, errs.Newf(errs.KindType, "%s expects a DOCUMENT, got %s", fn, value.TypeOf(args[i]))
	}
	return d, nil
}
