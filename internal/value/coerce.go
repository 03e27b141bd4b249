package value

import (
	"math"

	"github.com/plesql/plesql/internal/dates"
	"github.com/plesql/plesql/internal/errs"
)

// Coerce converts v to the declared type t.
//
// Null is accepted by every type. Arrays and documents come back as fresh
// copies, so the input is never modified or shared. ANY passes v through
// unchanged.
func Coerce(v Value, t Type) (Value, error) {
	if v == nil {
		v = Null{}
	}
	if t.IsAny() || IsNull(v) {
		return v, nil
	}
	switch t.Name {
	case TypeInt:
		switch x := v.(type) {
		case Int:
			return x, nil
		case Float:
			f := float64(x)
			if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f < math.MaxInt64 {
				return Int(int64(f)), nil
			}
			return nil, errs.Newf(errs.KindType, "cannot coerce non-integral %s to INT", ToString(x))
		}
	case TypeFloat:
		switch x := v.(type) {
		case Int:
			return Float(float64(x)), nil
		case Float:
			return x, nil
		}
	case TypeNumber:
		switch v.(type) {
		case Int, Float:
			return v, nil
		}
	case TypeString:
		if s, ok := v.(String); ok {
			return s, nil
		}
	case TypeBoolean:
		if b, ok := v.(Bool); ok {
			return b, nil
		}
	case TypeDate:
		switch x := v.(type) {
		case Date:
			return x, nil
		case String:
			tm, err := dates.Parse(string(x))
			if err != nil {
				return nil, errs.Wrap(errs.KindType, err, "cannot coerce STRING to DATE")
			}
			return NewDate(tm), nil
		}
	case TypeDocument:
		if d, ok := v.(*Document); ok {
			return Clone(d), nil
		}
	case TypeArray:
		a, ok := v.(*Array)
		if !ok {
			break
		}
		elem := t.elem()
		out := &Array{elems: make([]Value, len(a.elems))}
		for i, e := range a.elems {
			if elem.IsAny() {
				out.elems[i] = Clone(e)
				continue
			}
			c, err := Coerce(e, elem)
			if err != nil {
				return nil, errs.Newf(errs.KindType, "element %d of %s: %v", i+1, t, messageOf(err))
			}
			out.elems[i] = c
		}
		return out, nil
	}
	return nil, errs.Newf(errs.KindType, "cannot coerce %s to %s", TypeOf(v), t)
}

// Accepts reports whether v can be coerced to t.
func Accepts(t Type, v Value) bool {
	_, err := Coerce(v, t)
	return err == nil
}

func messageOf(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return e.Message
	}
	return err.Error()
}
