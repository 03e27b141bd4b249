package interp

import (
	"context"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// call resolves a user definition first, then a built-in.
func (r *run) call(ctx context.Context, c *ast.Call, sc *scope.Scope) (value.Value, error) {
	if routine, ok := r.e.defs.Lookup(c.Name); ok {
		return r.callRoutine(ctx, routine, c.Args, sc)
	}
	if _, ok := r.e.builtins.Lookup(c.Name); !ok {
		return nil, errs.Newf(errs.KindName, "unknown function or procedure %s", c.Name)
	}

	args := make([]value.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := r.eval(ctx, a, sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return r.e.builtins.Invoke(ctx, c.Name, args).Await(ctx)
}

func arityError(routine *ast.Routine, got int) error {
	return errs.Newf(errs.KindArity, "%s expects %d arguments, got %d", routine.Name, len(routine.Params), got)
}

// callRoutine evaluates arguments in the caller's scope, runs the routine,
// and writes OUT and INOUT parameters back when the routine completes
// normally. Index expressions in OUT and INOUT arguments are evaluated once,
// before the call, and the write-back reuses those indexes.
func (r *run) callRoutine(ctx context.Context, routine *ast.Routine, argExprs []ast.Expr, sc *scope.Scope) (value.Value, error) {
	if len(argExprs) != len(routine.Params) {
		return nil, arityError(routine, len(argExprs))
	}

	args := make([]value.Value, len(argExprs))
	places := make([]*place, len(argExprs))
	for i, p := range routine.Params {
		arg := argExprs[i]
		byRef := p.Mode == scope.ModeOut || p.Mode == scope.ModeInOut
		if byRef && !ast.IsAssignable(arg) {
			return nil, errs.Newf(errs.KindType, "argument %d of %s must be a variable for %s parameter %s",
				i+1, routine.Name, p.Mode, p.Name)
		}
		if _, ok := arg.(*ast.Index); ok && byRef {
			pl, err := r.locate(ctx, arg, sc)
			if err != nil {
				return nil, err
			}
			places[i] = pl
		}
		if p.Mode == scope.ModeOut {
			args[i] = value.Null{}
			continue
		}
		var v value.Value
		var err error
		if places[i] != nil {
			v, err = places[i].load()
		} else {
			v, err = r.eval(ctx, arg, sc)
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	fr, err := r.enter(ctx, routine, args)
	if err != nil {
		return nil, err
	}

	for i, p := range routine.Params {
		if p.Mode != scope.ModeOut && p.Mode != scope.ModeInOut {
			continue
		}
		if err := writeBack(argExprs[i], places[i], fr.params[i], sc); err != nil {
			return nil, err
		}
	}
	return fr.ret, nil
}

// writeBack stores v into a variable argument, or into the slot of an
// indexed argument located before the call.
func writeBack(arg ast.Expr, pl *place, v value.Value, sc *scope.Scope) error {
	if pl == nil {
		id, ok := arg.(*ast.Ident)
		if !ok {
			return errs.New(errs.KindType, "assignment target must be a variable or an index into one")
		}
		return sc.Assign(id.Name, v)
	}
	rf, err := pl.ref()
	if err != nil {
		return err
	}
	return rf.store(v)
}

// frameResult is what a completed invocation leaves behind.
type frameResult struct {
	routine *ast.Routine
	ret     value.Value
	// params holds the final value of every parameter, in order.
	params []value.Value
}

func (f *frameResult) outDocument() *value.Document {
	doc := value.NewDocument()
	for i, p := range f.routine.Params {
		if p.Mode == scope.ModeOut || p.Mode == scope.ModeInOut {
			doc.Set(p.Name, f.params[i])
		}
	}
	return doc
}

// enter runs routine in a fresh scope with no parent. Arguments are copied
// and coerced to the parameter types; OUT parameters start as NULL.
func (r *run) enter(ctx context.Context, routine *ast.Routine, args []value.Value) (*frameResult, error) {
	if len(args) != len(routine.Params) {
		return nil, arityError(routine, len(args))
	}
	if r.depth >= r.e.maxDepth {
		return nil, errs.Newf(errs.KindRecursionLimit, "call depth exceeded %d entering %s", r.e.maxDepth, routine.Name)
	}

	frame := scope.New()
	vars := make([]*scope.Variable, len(routine.Params))
	for i, p := range routine.Params {
		init := value.Clone(args[i])
		if p.Mode == scope.ModeOut {
			init = value.Null{}
		}
		v, err := frame.DeclareParam(p.Name, p.Type, init, p.Mode)
		if err != nil {
			if errs.Is(err, errs.KindType) {
				return nil, errs.Newf(errs.KindType, "argument %d of %s: %s", i+1, routine.Name, errs.From(err).Message)
			}
			return nil, err
		}
		vars[i] = v
	}

	r.depth++
	r.logger.Debug("routine entered", "name", routine.Name, "depth", r.depth)
	sig := r.execBlock(ctx, routine.Body, frame)
	r.depth--

	fr := &frameResult{routine: routine, ret: value.Null{}}
	switch sig.kind {
	case sigThrown:
		return nil, sig.err
	case sigBreak:
		return nil, errs.Newf(errs.KindBreakOutsideLoop, "BREAK escaped %s", routine.Name)
	case sigReturn:
		if routine.IsFunction() {
			ret, err := value.Coerce(sig.value, routine.Returns)
			if err != nil {
				return nil, errs.Newf(errs.KindType, "%s must return %s, got %s", routine.Name, routine.Returns, value.TypeOf(sig.value))
			}
			fr.ret = ret
		}
	}

	fr.params = make([]value.Value, len(vars))
	for i, v := range vars {
		fr.params[i] = v.Value
	}
	return fr, nil
}
