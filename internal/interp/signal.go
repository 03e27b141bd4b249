package interp

import (
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

type signalKind int

const (
	sigContinue signalKind = iota
	sigBreak
	sigReturn
	sigThrown
)

// signal is the outcome of executing a statement.
type signal struct {
	kind  signalKind
	value value.Value
	err   *errs.Error
}

var (
	proceed   = signal{kind: sigContinue}
	breakLoop = signal{kind: sigBreak}
)

func returned(v value.Value) signal {
	return signal{kind: sigReturn, value: v}
}

func thrown(err error) signal {
	return signal{kind: sigThrown, err: errs.From(err)}
}

func (s signal) cancelled() bool {
	return s.kind == sigThrown && !s.err.Catchable()
}

// topLevelError converts the signal ending a program into an error.
func (s signal) topLevelError() error {
	switch s.kind {
	case sigThrown:
		return s.err
	case sigBreak:
		return errs.New(errs.KindBreakOutsideLoop, "BREAK outside of a loop")
	case sigReturn:
		return errs.New(errs.KindReturnOutsideFunction, "RETURN outside of a procedure or function")
	}
	return nil
}
