package value

import (
	"math"
	"strings"

	"github.com/plesql/plesql/internal/errs"
)

// numeric reports the operand as int or float.
func numeric(v Value) (i int64, f float64, isInt, ok bool) {
	switch x := v.(type) {
	case Int:
		return int64(x), float64(x), true, true
	case Float:
		return 0, float64(x), false, true
	}
	return 0, 0, false, false
}

func arith(op string, a, b Value) (Value, error) {
	ai, af, aInt, aok := numeric(a)
	bi, bf, bInt, bok := numeric(b)
	if !aok || !bok {
		return nil, errs.Newf(errs.KindType, "operator %s requires numeric operands, got %s and %s", op, TypeOf(a), TypeOf(b))
	}
	if aInt && bInt && op != "/" {
		var r int64
		overflow := false
		switch op {
		case "+":
			r = ai + bi
			overflow = (r > ai) != (bi > 0)
		case "-":
			r = ai - bi
			overflow = (r < ai) != (bi > 0)
		case "*":
			r = ai * bi
			overflow = ai != 0 && (r/ai != bi || (ai == -1 && bi == math.MinInt64))
		default:
			return nil, errs.Newf(errs.KindType, "unknown arithmetic operator %s", op)
		}
		if overflow {
			return nil, errs.Newf(errs.KindRuntime, "integer overflow in %d %s %d", ai, op, bi)
		}
		return Int(r), nil
	}
	switch op {
	case "+":
		return Float(af + bf), nil
	case "-":
		return Float(af - bf), nil
	case "*":
		return Float(af * bf), nil
	case "/":
		if bf == 0 {
			return nil, errs.New(errs.KindDivisionByZero, "division by zero")
		}
		return Float(af / bf), nil
	}
	return nil, errs.Newf(errs.KindType, "unknown arithmetic operator %s", op)
}

// Add returns a + b.
func Add(a, b Value) (Value, error) { return arith("+", a, b) }

// Sub returns a - b.
func Sub(a, b Value) (Value, error) { return arith("-", a, b) }

// Mul returns a * b.
func Mul(a, b Value) (Value, error) { return arith("*", a, b) }

// Div returns a / b. The result is always a Float.
func Div(a, b Value) (Value, error) { return arith("/", a, b) }

// Neg returns -v.
func Neg(v Value) (Value, error) {
	switch x := v.(type) {
	case Int:
		if x == math.MinInt64 {
			return nil, errs.Newf(errs.KindRuntime, "integer overflow in -(%d)", int64(x))
		}
		return -x, nil
	case Float:
		return -x, nil
	}
	return nil, errs.Newf(errs.KindType, "cannot negate %s", TypeOf(v))
}

// Concat stringifies both operands and joins them.
func Concat(a, b Value) Value {
	return String(ToString(a) + ToString(b))
}

// Equal reports deep equality. Int and Float compare numerically; values of
// other differing kinds are never equal.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if _, af, _, aok := numeric(a); aok {
		if _, bf, _, bok := numeric(b); bok {
			ai, aInt := a.(Int)
			bi, bInt := b.(Int)
			if aInt && bInt {
				return ai == bi
			}
			return af == bf
		}
		return false
	}
	switch x := a.(type) {
	case Null:
		return IsNull(b)
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Date:
		y, ok := b.(Date)
		return ok && x.t.Equal(y.t)
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.elems) != len(y.elems) {
			return false
		}
		for i := range x.elems {
			if !Equal(x.elems[i], y.elems[i]) {
				return false
			}
		}
		return true
	case *Document:
		y, ok := b.(*Document)
		if !ok || len(x.keys) != len(y.keys) {
			return false
		}
		for k, v := range x.vals {
			w, ok := y.vals[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers, two strings or two dates. It returns -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	if ai, af, aInt, aok := numeric(a); aok {
		if bi, bf, bInt, bok := numeric(b); bok {
			if aInt && bInt {
				return cmpOrdered(ai, bi), nil
			}
			if math.IsNaN(af) || math.IsNaN(bf) {
				return 0, errs.New(errs.KindType, "cannot order NaN")
			}
			return cmpOrdered(af, bf), nil
		}
	}
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Date:
		if y, ok := b.(Date); ok {
			return x.t.Compare(y.t), nil
		}
	}
	return 0, errs.Newf(errs.KindType, "cannot compare %s with %s", TypeOf(a), TypeOf(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
