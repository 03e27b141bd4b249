package interp

import (
	"context"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// bridgeError classifies a failed bridge call. Cancellation wins over
// whatever error the bridge reported for it.
func bridgeError(ctx context.Context, err error, message string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errs.From(ctxErr)
	}
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(errs.KindExternalBridge, err, message)
}

// execExecute runs the query, persists the result when asked, and only then
// binds it. The persist future is awaited once; there is no retry.
func (r *run) execExecute(ctx context.Context, s *ast.Execute, sc *scope.Scope) signal {
	r.logger.Debug("execute query", "var", s.Var)
	res, err := r.e.bridge.RunQuery(ctx, s.Query).Await(ctx)
	if err != nil {
		return thrown(bridgeError(ctx, err, "query failed"))
	}

	if s.PersistInto != "" {
		if _, err := r.e.bridge.Persist(ctx, res, s.PersistInto).Await(ctx); err != nil {
			return thrown(bridgeError(ctx, err, "persist into "+s.PersistInto+" failed"))
		}
		r.logger.Debug("execute persisted", "target", s.PersistInto)
	}

	rows := res.Value()
	if sc.Has(s.Var) {
		if err := sc.Assign(s.Var, rows); err != nil {
			return thrown(err)
		}
	} else if _, err := sc.Declare(s.Var, value.TypeOf(rows), rows); err != nil {
		return thrown(err)
	}
	r.logger.Debug("execute bound", "var", s.Var, "rows", rows.Len())
	return proceed
}
