// Package registry holds the process-wide set of user-defined procedures
// and functions.
//
// Definitions are keyed by upper-cased name. With a Store attached the
// registry is loaded at startup and every change is written through before
// it becomes visible to running scripts.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/store"
)

// Store persists definitions. *store.Database implements it.
type Store interface {
	SaveDefinition(ctx context.Context, def store.Definition) error
	DeleteDefinition(ctx context.Context, name string) error
	LoadDefinitions(ctx context.Context) ([]store.Definition, error)
}

// Op names a registry change.
type Op string

const (
	OpCreate  Op = "create"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

// Event describes a change that has been applied.
type Event struct {
	Op   Op
	Name string
	Kind ast.RoutineKind
}

// Listener is notified after each applied change.
type Listener func(Event)

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	defs      map[string]*ast.Routine
	store     Store
	logger    *slog.Logger
	listeners []Listener
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore attaches durable storage.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithLogger sets the logger used for definition changes.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithListener registers a change listener.
func WithListener(fn Listener) Option {
	return func(r *Registry) { r.listeners = append(r.listeners, fn) }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		defs:   make(map[string]*ast.Routine),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func key(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Load replaces the in-memory definitions with the store's contents.
// It is a no-op without a store.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	stored, err := r.store.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}

	defs := make(map[string]*ast.Routine, len(stored))
	for _, sd := range stored {
		routine, err := ast.DecodeRoutine(sd.Source)
		if err != nil {
			return fmt.Errorf("definition %s: %w", sd.Name, err)
		}
		defs[key(routine.Name)] = routine
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()

	r.logger.Debug("definitions loaded", "count", len(defs))
	return nil
}

// Define inserts or replaces a definition. The routine must be fully built;
// callers must not modify it afterwards.
func (r *Registry) Define(ctx context.Context, routine *ast.Routine) error {
	if routine == nil || key(routine.Name) == "" {
		return errs.New(errs.KindSyntax, "definition requires a name")
	}
	k := key(routine.Name)

	var source []byte
	if r.store != nil {
		var err error
		source, err = ast.EncodeRoutine(routine)
		if err != nil {
			return fmt.Errorf("encode definition %s: %w", routine.Name, err)
		}
	}

	r.mu.Lock()
	if r.store != nil {
		err := r.store.SaveDefinition(ctx, store.Definition{
			Name:   routine.Name,
			Kind:   string(routine.Kind),
			Source: source,
		})
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save definition %s: %w", routine.Name, err)
		}
	}
	_, existed := r.defs[k]
	r.defs[k] = routine
	r.mu.Unlock()

	op := OpCreate
	if existed {
		op = OpReplace
	}
	r.logger.Info("definition saved", "op", op, "kind", routine.Kind, "name", routine.Name)
	r.notify(Event{Op: op, Name: routine.Name, Kind: routine.Kind})
	return nil
}

// Drop removes a definition. Dropping an unknown name is a NameError.
func (r *Registry) Drop(ctx context.Context, name string) error {
	k := key(name)

	r.mu.Lock()
	routine, ok := r.defs[k]
	if !ok {
		r.mu.Unlock()
		return errs.Newf(errs.KindName, "no procedure or function named %s", name)
	}
	if r.store != nil {
		err := r.store.DeleteDefinition(ctx, routine.Name)
		if err != nil && !errors.Is(err, store.ErrDefinitionNotFound) {
			r.mu.Unlock()
			return fmt.Errorf("delete definition %s: %w", routine.Name, err)
		}
	}
	delete(r.defs, k)
	r.mu.Unlock()

	r.logger.Info("definition deleted", "kind", routine.Kind, "name", routine.Name)
	r.notify(Event{Op: OpDelete, Name: routine.Name, Kind: routine.Kind})
	return nil
}

// Lookup finds a definition by case-insensitive name.
func (r *Registry) Lookup(name string) (*ast.Routine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routine, ok := r.defs[key(name)]
	return routine, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []*ast.Routine {
	r.mu.RLock()
	out := make([]*ast.Routine, 0, len(r.defs))
	for _, routine := range r.defs {
		out = append(out, routine)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return key(out[i].Name) < key(out[j].Name)
	})
	return out
}

func (r *Registry) notify(e Event) {
	for _, fn := range r.listeners {
		fn(e)
	}
}
