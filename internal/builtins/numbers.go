package builtins

import (
	"context"
	"math"

	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

func numberFunctions() []*Function {
	n := value.TypeNumber
	fns := []*Function{
		{Name: "ABS", Doc: "Absolute value.", Params: []Param{param("n", n)}, Impl: Sync(floatFunc(math.Abs))},
		{Name: "CEIL", Doc: "Smallest integral value not less than n.", Params: []Param{param("n", n)}, Impl: Sync(floatFunc(math.Ceil))},
		{Name: "FLOOR", Doc: "Largest integral value not greater than n.", Params: []Param{param("n", n)}, Impl: Sync(floatFunc(math.Floor))},
		{Name: "ROUND", Doc: "Rounds n half away from zero to scale decimal places (default 0).",
			Params: []Param{param("n", n), optional("scale", value.TypeInt)}, Impl: Sync(scaledFunc(math.Round))},
		{Name: "TRUNC", Doc: "Truncates n toward zero to scale decimal places (default 0).",
			Params: []Param{param("n", n), optional("scale", value.TypeInt)}, Impl: Sync(scaledFunc(math.Trunc))},
		{Name: "POWER", Doc: "b raised to the power e.", Params: []Param{param("b", n), param("e", n)}, Impl: Sync(fnPower)},
		{Name: "SQRT", Doc: "Square root of a non-negative n.", Params: []Param{param("n", n)}, Impl: Sync(fnSqrt)},
		{Name: "LOG", Doc: "Logarithm of n, natural unless base is given.",
			Params: []Param{param("n", n), optional("base", n)}, Impl: Sync(fnLog)},
		{Name: "EXP", Doc: "e raised to the power n.", Params: []Param{param("n", n)}, Impl: Sync(floatFunc(math.Exp))},
		{Name: "MOD", Doc: "Remainder of a divided by b; INT when both are INT.",
			Params: []Param{param("a", n), param("b", n)}, Impl: Sync(fnMod)},
		{Name: "SIGN", Doc: "-1, 0 or 1 according to the sign of n.", Params: []Param{param("n", n)}, Impl: Sync(fnSign)},
	}
	for _, f := range fns {
		f.Category = "number"
		f.Strict = true
	}
	return fns
}

func floatFunc(fn func(float64) float64) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		return value.Float(fn(toFloat(args[0]))), nil
	}
}

func scaledFunc(fn func(float64) float64) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		x := toFloat(args[0])
		scale := int64(0)
		if len(args) > 1 {
			scale = int64(args[1].(value.Int))
		}
		if scale == 0 {
			return value.Float(fn(x)), nil
		}
		p := math.Pow(10, float64(scale))
		return value.Float(fn(x*p) / p), nil
	}
}

func fnPower(_ context.Context, args []value.Value) (value.Value, error) {
	return value.Float(math.Pow(toFloat(args[0]), toFloat(args[1]))), nil
}

func fnSqrt(_ context.Context, args []value.Value) (value.Value, error) {
	x := toFloat(args[0])
	if x < 0 {
		return nil, errs.Newf(errs.KindType, "SQRT of negative number %s", value.ToString(args[0]))
	}
	return value.Float(math.Sqrt(x)), nil
}

func fnLog(_ context.Context, args []value.Value) (value.Value, error) {
	x := toFloat(args[0])
	if x <= 0 {
		return nil, errs.Newf(errs.KindType, "LOG of non-positive number %s", value.ToString(args[0]))
	}
	if len(args) < 2 {
		return value.Float(math.Log(x)), nil
	}
	base := toFloat(args[1])
	if base <= 0 || base == 1 {
		return nil, errs.Newf(errs.KindType, "LOG base must be positive and not 1, got %s", value.ToString(args[1]))
	}
	return value.Float(math.Log(x) / math.Log(base)), nil
}

func fnMod(_ context.Context, args []value.Value) (value.Value, error) {
	a, aInt := args[0].(value.Int)
	b, bInt := args[1].(value.Int)
	if aInt && bInt {
		if b == 0 {
			return nil, errs.New(errs.KindDivisionByZero, "MOD by zero")
		}
		return a % b, nil
	}
	divisor := toFloat(args[1])
	if divisor == 0 {
		return nil, errs.New(errs.KindDivisionByZero, "MOD by zero")
	}
	return value.Float(math.Mod(toFloat(args[0]), divisor)), nil
}

func fnSign(_ context.Context, args []value.Value) (value.Value, error) {
	x := toFloat(args[0])
	switch {
	case x > 0:
		return value.Int(1), nil
	case x < 0:
		return value.Int(-1), nil
	}
	return value.Int(0), nil
}
