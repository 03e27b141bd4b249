// Package scope implements the chained variable bindings a script sees.
package scope

import (
	"sort"
	"strings"

	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

// Mode is the passing mode of a parameter.
type Mode string

const (
	ModeLocal Mode = ""
	ModeIn    Mode = "IN"
	ModeOut   Mode = "OUT"
	ModeInOut Mode = "INOUT"
)

// ParseMode parses a parameter mode. An empty string means IN.
func ParseMode(s string) (Mode, bool) {
	switch strings.Join(strings.Fields(strings.ToUpper(s)), " ") {
	case "", "IN":
		return ModeIn, true
	case "OUT":
		return ModeOut, true
	case "INOUT", "IN OUT":
		return ModeInOut, true
	}
	return "", false
}

// Variable is a named, typed binding.
type Variable struct {
	Name  string
	Type  value.Type
	Value value.Value
	Mode  Mode
}

// Scope maps names to variables and falls through to its parent.
type Scope struct {
	parent *Scope
	vars   map[string]*Variable
}

// New returns a root scope.
func New() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// Child returns a nested scope whose lookups fall through to s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: make(map[string]*Variable)}
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Declare binds name in this scope. The initial value is coerced to t.
func (s *Scope) Declare(name string, t value.Type, init value.Value) (*Variable, error) {
	return s.DeclareParam(name, t, init, ModeLocal)
}

// DeclareParam is like Declare but records the parameter mode.
func (s *Scope) DeclareParam(name string, t value.Type, init value.Value, mode Mode) (*Variable, error) {
	if _, exists := s.vars[name]; exists {
		return nil, errs.Newf(errs.KindName, "variable %q is already declared in this scope", name)
	}
	if init == nil {
		init = value.Null{}
	}
	v, err := value.Coerce(init, t)
	if err != nil {
		return nil, errs.Newf(errs.KindType, "cannot initialize %s %s: %s", name, t, messageOf(err))
	}
	variable := &Variable{Name: name, Type: t, Value: v, Mode: mode}
	s.vars[name] = variable
	return variable, nil
}

// Lookup finds name in this scope or the nearest enclosing one.
func (s *Scope) Lookup(name string) (*Variable, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, nil
		}
	}
	return nil, errs.Newf(errs.KindName, "undeclared variable %q", name)
}

// Has reports whether name is visible from s.
func (s *Scope) Has(name string) bool {
	_, err := s.Lookup(name)
	return err == nil
}

// Assign writes val to the scope that declared name, coercing it to the
// variable's declared type.
func (s *Scope) Assign(name string, val value.Value) error {
	v, err := s.Lookup(name)
	if err != nil {
		return err
	}
	coerced, err := value.Coerce(val, v.Type)
	if err != nil {
		return errs.Newf(errs.KindType, "cannot assign to %s %s: %s", name, v.Type, messageOf(err))
	}
	v.Value = coerced
	return nil
}

// Names lists the names bound directly in s, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func messageOf(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return e.Message
	}
	return err.Error()
}
