package interp

import (
	"context"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// eval reduces e to a value. Operands are evaluated left to right.
func (r *run) eval(ctx context.Context, e ast.Expr, sc *scope.Scope) (value.Value, error) {
	switch e := e.(type) {
	case *ast.Literal:
		if e.Value == nil {
			return value.Null{}, nil
		}
		return value.Clone(e.Value), nil
	case *ast.Ident:
		v, err := sc.Lookup(e.Name)
		if err != nil {
			return nil, err
		}
		return v.Value, nil
	case *ast.Unary:
		x, err := r.eval(ctx, e.X, sc)
		if err != nil {
			return nil, err
		}
		return value.Neg(x)
	case *ast.Binary:
		return r.evalBinary(ctx, e, sc)
	case *ast.Call:
		return r.call(ctx, e, sc)
	case *ast.ArrayLit:
		elems := make([]value.Value, len(e.Elems))
		for i, x := range e.Elems {
			v, err := r.eval(ctx, x, sc)
			if err != nil {
				return nil, err
			}
			elems[i] = value.Clone(v)
		}
		return value.NewArray(elems...), nil
	case *ast.DocumentLit:
		doc := value.NewDocument()
		for _, f := range e.Fields {
			v, err := r.eval(ctx, f.Value, sc)
			if err != nil {
				return nil, err
			}
			doc.Set(f.Key, value.Clone(v))
		}
		return doc, nil
	case *ast.Index:
		x, err := r.eval(ctx, e.X, sc)
		if err != nil {
			return nil, err
		}
		k, err := r.eval(ctx, e.Index, sc)
		if err != nil {
			return nil, err
		}
		return readIndex(x, k)
	case nil:
		return nil, errs.New(errs.KindRuntime, "missing expression")
	}
	return nil, errs.Newf(errs.KindRuntime, "unsupported expression %T", e)
}

func (r *run) evalBinary(ctx context.Context, e *ast.Binary, sc *scope.Scope) (value.Value, error) {
	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		left, err := r.logical(ctx, e.Left, sc, e.Op)
		if err != nil {
			return nil, err
		}
		if e.Op == ast.OpAnd && !left {
			return value.Bool(false), nil
		}
		if e.Op == ast.OpOr && left {
			return value.Bool(true), nil
		}
		right, err := r.logical(ctx, e.Right, sc, e.Op)
		if err != nil {
			return nil, err
		}
		return value.Bool(right), nil
	}

	left, err := r.eval(ctx, e.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := r.eval(ctx, e.Right, sc)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpAdd:
		return value.Add(left, right)
	case ast.OpSub:
		return value.Sub(left, right)
	case ast.OpMul:
		return value.Mul(left, right)
	case ast.OpDiv:
		return value.Div(left, right)
	case ast.OpConcat:
		return value.Concat(left, right), nil
	case ast.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.OpNe:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		c, err := value.Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case ast.OpLt:
			return value.Bool(c < 0), nil
		case ast.OpGt:
			return value.Bool(c > 0), nil
		case ast.OpLe:
			return value.Bool(c <= 0), nil
		default:
			return value.Bool(c >= 0), nil
		}
	}
	return nil, errs.Newf(errs.KindRuntime, "unknown operator %s", e.Op)
}

func (r *run) logical(ctx context.Context, e ast.Expr, sc *scope.Scope, op ast.BinaryOp) (bool, error) {
	v, err := r.eval(ctx, e, sc)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Bool)
	if !ok {
		return false, errs.Newf(errs.KindType, "%s needs BOOLEAN operands, got %s", op, value.TypeOf(v))
	}
	return bool(b), nil
}

// arrayIndex converts a 1-based language index into a slice index.
func arrayIndex(a *value.Array, k value.Value) (int, error) {
	if value.IsNull(k) {
		return 0, errs.New(errs.KindType, "array index is NULL")
	}
	c, err := value.Coerce(k, value.Of(value.TypeInt))
	if err != nil {
		return 0, errs.Newf(errs.KindType, "array index must be INT, got %s", value.TypeOf(k))
	}
	i := int64(c.(value.Int))
	if i < 1 || i > int64(a.Len()) {
		return 0, errs.Newf(errs.KindIndexOutOfBounds, "index %d out of bounds for array of length %d", i, a.Len())
	}
	return int(i - 1), nil
}

func documentKey(k value.Value) (string, error) {
	s, ok := k.(value.String)
	if !ok {
		return "", errs.Newf(errs.KindType, "document key must be STRING, got %s", value.TypeOf(k))
	}
	return string(s), nil
}

func readIndex(x, k value.Value) (value.Value, error) {
	switch c := x.(type) {
	case *value.Array:
		i, err := arrayIndex(c, k)
		if err != nil {
			return nil, err
		}
		return c.At(i), nil
	case *value.Document:
		return nil, errs.New(errs.KindType, "cannot index a DOCUMENT with brackets; use DOCUMENT_GET")
	}
	return nil, errs.Newf(errs.KindType, "cannot index %s", value.TypeOf(x))
}

// ref is an assignable element: an array slot or a document key.
type ref struct {
	container value.Value
	key       value.Value
	elemType  value.Type
}

func elemOf(t value.Type) value.Type {
	if t.Name == value.TypeArray && t.Elem != nil {
		return *t.Elem
	}
	return value.Of(value.TypeAny)
}

// place is an index chain rooted at a variable with every index already
// evaluated.
type place struct {
	variable *scope.Variable
	keys     []value.Value
}

// locate evaluates the indexes of target once, left to right.
func (r *run) locate(ctx context.Context, target ast.Expr, sc *scope.Scope) (*place, error) {
	var path []ast.Expr
	cur := target
	var root *ast.Ident
	for root == nil {
		switch x := cur.(type) {
		case *ast.Index:
			path = append([]ast.Expr{x.Index}, path...)
			cur = x.X
		case *ast.Ident:
			root = x
		default:
			return nil, errs.New(errs.KindType, "assignment target must be a variable or an index into one")
		}
	}

	variable, err := sc.Lookup(root.Name)
	if err != nil {
		return nil, err
	}
	keys := make([]value.Value, len(path))
	for i, p := range path {
		if keys[i], err = r.eval(ctx, p, sc); err != nil {
			return nil, err
		}
	}
	return &place{variable: variable, keys: keys}, nil
}

// ref walks the chain from the variable's current value and returns the
// innermost slot. Intermediate document keys may be read here even though
// bracket reads of documents are rejected in expressions.
func (p *place) ref() (*ref, error) {
	if len(p.keys) == 0 {
		return nil, errs.New(errs.KindType, "assignment target must be an index")
	}
	container, t := p.variable.Value, p.variable.Type
	for _, k := range p.keys[:len(p.keys)-1] {
		switch c := container.(type) {
		case *value.Array:
			i, err := arrayIndex(c, k)
			if err != nil {
				return nil, err
			}
			container = c.At(i)
		case *value.Document:
			key, err := documentKey(k)
			if err != nil {
				return nil, err
			}
			container, _ = c.Get(key)
		default:
			return nil, errs.Newf(errs.KindType, "cannot index %s", value.TypeOf(container))
		}
		t = elemOf(t)
	}
	return &ref{container: container, key: p.keys[len(p.keys)-1], elemType: elemOf(t)}, nil
}

// load reads the slot the way an index expression would.
func (p *place) load() (value.Value, error) {
	rf, err := p.ref()
	if err != nil {
		return nil, err
	}
	return readIndex(rf.container, rf.key)
}

// resolveRef evaluates the index chain of target and returns its slot.
func (r *run) resolveRef(ctx context.Context, target ast.Expr, sc *scope.Scope) (*ref, error) {
	p, err := r.locate(ctx, target, sc)
	if err != nil {
		return nil, err
	}
	return p.ref()
}

// store writes a copy of v into the slot. Arrays never grow.
func (rf *ref) store(v value.Value) error {
	v = value.Clone(v)
	switch c := rf.container.(type) {
	case *value.Array:
		i, err := arrayIndex(c, rf.key)
		if err != nil {
			return err
		}
		coerced, err := value.Coerce(v, rf.elemType)
		if err != nil {
			return errs.Newf(errs.KindType, "cannot store %s in %s element", value.TypeOf(v), rf.elemType)
		}
		c.Set(i, coerced)
		return nil
	case *value.Document:
		key, err := documentKey(rf.key)
		if err != nil {
			return err
		}
		c.Set(key, v)
		return nil
	}
	return errs.Newf(errs.KindType, "cannot index %s", value.TypeOf(rf.container))
}
