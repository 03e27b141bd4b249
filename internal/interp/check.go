package interp

import (
	"strings"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
)

// Check reports the problems in prog that are visible without running it:
// BREAK outside a loop, RETURN outside a routine, and malformed
// definitions. It returns nil for a valid program.
func Check(prog *ast.Program) []*errs.Error {
	c := &checker{}
	c.block(prog.Body)
	return c.issues
}

// CheckRoutine validates a definition before it is registered.
func CheckRoutine(r *ast.Routine) []*errs.Error {
	c := &checker{}
	c.routine(r, r.Pos)
	return c.issues
}

type checker struct {
	loops     int
	inRoutine bool
	issues    []*errs.Error
}

func (c *checker) report(pos ast.Pos, kind errs.Kind, format string, args ...any) {
	c.issues = append(c.issues, errs.Newf(kind, format, args...).At(pos.Line, pos.Column))
}

func (c *checker) block(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.stmt(s)
	}
}

func (c *checker) loop(body []ast.Stmt) {
	c.loops++
	c.block(body)
	c.loops--
}

func (c *checker) stmt(s ast.Stmt) {
	pos := s.Position()
	switch s := s.(type) {
	case *ast.Break:
		if c.loops == 0 {
			c.report(pos, errs.KindBreakOutsideLoop, "BREAK outside of a loop")
		}
	case *ast.Return:
		if !c.inRoutine {
			c.report(pos, errs.KindReturnOutsideFunction, "RETURN outside of a procedure or function")
		}
	case *ast.If:
		for _, b := range s.Branches {
			c.block(b.Body)
		}
		c.block(s.Else)
	case *ast.While:
		c.loop(s.Body)
	case *ast.ForRange:
		c.loop(s.Body)
	case *ast.ForEach:
		c.loop(s.Body)
	case *ast.Try:
		c.block(s.Body)
		c.block(s.Catch)
		c.block(s.Finally)
	case *ast.Set:
		if !ast.IsAssignable(s.Target) {
			c.report(pos, errs.KindSyntax, "SET target must be a variable or an index into one")
		}
	case *ast.Execute:
		if strings.TrimSpace(s.Var) == "" {
			c.report(pos, errs.KindSyntax, "EXECUTE needs a target variable")
		}
	case *ast.Define:
		c.routine(s.Routine, pos)
	}
}

func (c *checker) routine(r *ast.Routine, pos ast.Pos) {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		c.report(pos, errs.KindSyntax, "definition requires a name")
		return
	}
	seen := make(map[string]bool, len(r.Params))
	for _, p := range r.Params {
		if seen[p.Name] {
			c.report(pos, errs.KindName, "%s declares parameter %s twice", r.Name, p.Name)
		}
		seen[p.Name] = true
	}

	// A body sees no enclosing loop.
	loops, inRoutine := c.loops, c.inRoutine
	c.loops, c.inRoutine = 0, true
	c.block(r.Body)
	c.loops, c.inRoutine = loops, inRoutine
}
