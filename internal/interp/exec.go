package interp

import (
	"context"
	"log/slog"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// run is the state of one Run or Call.
type run struct {
	e      *Engine
	id     string
	logger *slog.Logger
	output []PrintLine
	depth  int
}

func (r *run) rootScope() *scope.Scope {
	return scope.New()
}

// execBlock runs stmts in order and stops at the first signal that is not
// Continue. Callers pass the scope the block should run in.
func (r *run) execBlock(ctx context.Context, stmts []ast.Stmt, sc *scope.Scope) signal {
	for _, s := range stmts {
		if err := ctx.Err(); err != nil {
			return thrown(err).at(s.Position())
		}
		if sig := r.exec(ctx, s, sc); sig.kind != sigContinue {
			return sig
		}
	}
	return proceed
}

func (s signal) at(pos ast.Pos) signal {
	if s.kind == sigThrown {
		s.err.At(pos.Line, pos.Column)
	}
	return s
}

func (r *run) exec(ctx context.Context, s ast.Stmt, sc *scope.Scope) signal {
	return r.dispatch(ctx, s, sc).at(s.Position())
}

func (r *run) dispatch(ctx context.Context, s ast.Stmt, sc *scope.Scope) signal {
	switch s := s.(type) {
	case *ast.Declare:
		return r.execDeclare(ctx, s, sc)
	case *ast.Set:
		return r.execSet(ctx, s, sc)
	case *ast.If:
		return r.execIf(ctx, s, sc)
	case *ast.While:
		return r.execWhile(ctx, s, sc)
	case *ast.ForRange:
		return r.execForRange(ctx, s, sc)
	case *ast.ForEach:
		return r.execForEach(ctx, s, sc)
	case *ast.Try:
		return r.execTry(ctx, s, sc)
	case *ast.Throw:
		v, err := r.eval(ctx, s.Message, sc)
		if err != nil {
			return thrown(err)
		}
		return thrown(errs.New(errs.KindUser, value.ToString(v)))
	case *ast.Break:
		return breakLoop
	case *ast.Return:
		if s.Value == nil {
			return returned(value.Null{})
		}
		v, err := r.eval(ctx, s.Value, sc)
		if err != nil {
			return thrown(err)
		}
		return returned(v)
	case *ast.Print:
		return r.execPrint(ctx, s, sc)
	case *ast.Execute:
		return r.execExecute(ctx, s, sc)
	case *ast.CallStmt:
		if _, err := r.call(ctx, s.Call, sc); err != nil {
			return thrown(err)
		}
		return proceed
	case *ast.Define:
		return r.execDefine(ctx, s)
	case *ast.Drop:
		if err := r.e.defs.Drop(ctx, s.Name); err != nil {
			return thrown(hostError(err))
		}
		return proceed
	}
	return thrown(errs.Newf(errs.KindRuntime, "unsupported statement %T", s))
}

// hostError classifies failures of the registry and its store.
func hostError(err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	if e := errs.From(err); e.Kind == errs.KindCancelled {
		return e
	}
	return errs.Wrap(errs.KindRuntime, err, "definition storage failed")
}

func (r *run) execDeclare(ctx context.Context, s *ast.Declare, sc *scope.Scope) signal {
	for _, d := range s.Vars {
		var init value.Value = value.Null{}
		if d.Init != nil {
			v, err := r.eval(ctx, d.Init, sc)
			if err != nil {
				return thrown(err)
			}
			init = value.Clone(v)
		}
		if _, err := sc.Declare(d.Name, d.Type, init); err != nil {
			return thrown(err)
		}
	}
	return proceed
}

func (r *run) execSet(ctx context.Context, s *ast.Set, sc *scope.Scope) signal {
	if id, ok := s.Target.(*ast.Ident); ok {
		v, err := r.eval(ctx, s.Value, sc)
		if err != nil {
			return thrown(err)
		}
		if err := sc.Assign(id.Name, value.Clone(v)); err != nil {
			return thrown(err)
		}
		return proceed
	}

	ref, err := r.resolveRef(ctx, s.Target, sc)
	if err != nil {
		return thrown(err)
	}
	v, err := r.eval(ctx, s.Value, sc)
	if err != nil {
		return thrown(err)
	}
	if err := ref.store(v); err != nil {
		return thrown(err)
	}
	return proceed
}

func (r *run) condition(ctx context.Context, e ast.Expr, sc *scope.Scope, what string) (bool, error) {
	v, err := r.eval(ctx, e, sc)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Bool)
	if !ok {
		return false, errs.Newf(errs.KindType, "%s condition must be BOOLEAN, got %s", what, value.TypeOf(v))
	}
	return bool(b), nil
}

func (r *run) execIf(ctx context.Context, s *ast.If, sc *scope.Scope) signal {
	for _, b := range s.Branches {
		ok, err := r.condition(ctx, b.Cond, sc, "IF")
		if err != nil {
			return thrown(err)
		}
		if ok {
			return r.execBlock(ctx, b.Body, sc.Child())
		}
	}
	if s.Else != nil {
		return r.execBlock(ctx, s.Else, sc.Child())
	}
	return proceed
}

// iterate applies the loop limit and handles a body's signal. It reports
// whether the loop should stop and the signal to return if so.
func (r *run) iterate(ctx context.Context, n int, body []ast.Stmt, sc *scope.Scope) (stop bool, sig signal) {
	if limit := r.e.maxLoop; limit > 0 && n > limit {
		return true, thrown(errs.Newf(errs.KindRuntime, "loop exceeded %d iterations", limit))
	}
	switch sig := r.execBlock(ctx, body, sc); sig.kind {
	case sigBreak:
		return true, proceed
	case sigReturn, sigThrown:
		return true, sig
	}
	return false, proceed
}

func (r *run) execWhile(ctx context.Context, s *ast.While, sc *scope.Scope) signal {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return thrown(err)
		}
		ok, err := r.condition(ctx, s.Cond, sc, "WHILE")
		if err != nil {
			return thrown(err)
		}
		if !ok {
			return proceed
		}
		if stop, sig := r.iterate(ctx, n, s.Body, sc.Child()); stop {
			return sig
		}
	}
}

func (r *run) bound(ctx context.Context, e ast.Expr, sc *scope.Scope, which string) (int64, error) {
	v, err := r.eval(ctx, e, sc)
	if err != nil {
		return 0, err
	}
	if value.IsNull(v) {
		return 0, errs.Newf(errs.KindType, "FOR %s bound is NULL", which)
	}
	c, err := value.Coerce(v, value.Of(value.TypeInt))
	if err != nil {
		return 0, errs.Newf(errs.KindType, "FOR %s bound must be INT, got %s", which, value.TypeOf(v))
	}
	return int64(c.(value.Int)), nil
}

func (r *run) execForRange(ctx context.Context, s *ast.ForRange, sc *scope.Scope) signal {
	from, err := r.bound(ctx, s.From, sc, "lower")
	if err != nil {
		return thrown(err)
	}
	to, err := r.bound(ctx, s.To, sc, "upper")
	if err != nil {
		return thrown(err)
	}
	intT := value.Of(value.TypeInt)
	n := 0
	for i := from; i <= to; i++ {
		if err := ctx.Err(); err != nil {
			return thrown(err)
		}
		n++
		iter := sc.Child()
		if _, err := iter.Declare(s.Var, intT, value.Int(i)); err != nil {
			return thrown(err)
		}
		if stop, sig := r.iterate(ctx, n, s.Body, iter); stop {
			return sig
		}
		if i == to {
			break
		}
	}
	return proceed
}

func (r *run) execForEach(ctx context.Context, s *ast.ForEach, sc *scope.Scope) signal {
	v, err := r.eval(ctx, s.In, sc)
	if err != nil {
		return thrown(err)
	}
	arr, ok := v.(*value.Array)
	if !ok {
		return thrown(errs.Newf(errs.KindType, "FOR ... IN needs an ARRAY, got %s", value.TypeOf(v)))
	}
	elems := append([]value.Value(nil), arr.Elems()...)
	anyT := value.Of(value.TypeAny)
	for i, elem := range elems {
		if err := ctx.Err(); err != nil {
			return thrown(err)
		}
		iter := sc.Child()
		if _, err := iter.Declare(s.Var, anyT, elem); err != nil {
			return thrown(err)
		}
		if stop, sig := r.iterate(ctx, i+1, s.Body, iter); stop {
			return sig
		}
	}
	return proceed
}

func (r *run) execTry(ctx context.Context, s *ast.Try, sc *scope.Scope) signal {
	sig := r.execBlock(ctx, s.Body, sc.Child())
	if sig.cancelled() {
		return sig
	}
	if sig.kind == sigThrown && s.Catch != nil {
		r.logger.Debug("error caught", "kind", sig.err.Kind, "line", sig.err.Line)
		sig = r.execBlock(ctx, s.Catch, sc.Child())
		if sig.cancelled() {
			return sig
		}
	}
	if s.Finally != nil {
		if fin := r.execBlock(ctx, s.Finally, sc.Child()); fin.kind != sigContinue {
			return fin
		}
	}
	return sig
}

func (r *run) execPrint(ctx context.Context, s *ast.Print, sc *scope.Scope) signal {
	v, err := r.eval(ctx, s.Value, sc)
	if err != nil {
		return thrown(err)
	}
	sev := s.Severity
	if sev == "" {
		sev = ast.SeverityInfo
	}
	line := PrintLine{Severity: sev, Message: value.ToString(v)}
	r.output = append(r.output, line)
	if r.e.sink != nil {
		if err := r.e.sink.Emit(ctx, line.Message, line.Severity); err != nil {
			return thrown(errs.Wrap(errs.KindRuntime, err, "print sink failed"))
		}
	}
	return proceed
}

func (r *run) execDefine(ctx context.Context, s *ast.Define) signal {
	if issues := CheckRoutine(s.Routine); len(issues) > 0 {
		return thrown(issues[0])
	}
	if err := r.e.defs.Define(ctx, s.Routine); err != nil {
		return thrown(hostError(err))
	}
	return proceed
}
