package builtins

import (
	"context"
	"time"

	"github.com/plesql/plesql/internal/async"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

func miscFunctions() []*Function {
	fns := []*Function{
		{Name: "SLEEP", Doc: "Waits ms milliseconds, then returns NULL.",
			Params: []Param{param("ms", value.TypeInt)}, Impl: fnSleep},
		{Name: "TYPEOF", Doc: "Type name of v, e.g. INT or ARRAY OF STRING.",
			Params: []Param{param("v", value.TypeAny)}, Impl: Sync(fnTypeOf)},
	}
	for _, f := range fns {
		f.Category = "misc"
	}
	return fns
}

func fnSleep(ctx context.Context, args []value.Value) *async.Future[value.Value] {
	ms, ok := args[0].(value.Int)
	if !ok || ms < 0 {
		return async.Failed[value.Value](errs.Newf(errs.KindType, "SLEEP expects a non-negative INT, got %s", value.ToString(args[0])))
	}
	f := async.New[value.Value]()
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			f.Resolve(value.Null{})
		case <-ctx.Done():
			f.Reject(ctx.Err())
		}
	}()
	return f
}

func fnTypeOf(_ context.Context, args []value.Value) (value.Value, error) {
	return value.String(value.TypeOf(args[0]).String()), nil
}
