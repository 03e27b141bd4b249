package ast

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/plesql/plesql/internal/dates"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// Encode renders a program in the YAML tree format. Decode(Encode(p))
// yields an equivalent program.
func Encode(prog *Program) ([]byte, error) {
	node, err := encodeBlock(prog.Body)
	if err != nil {
		return nil, err
	}
	return marshalNode(node)
}

// EncodeRoutine renders a single definition statement.
func EncodeRoutine(r *Routine) ([]byte, error) {
	node, err := encodeStmt(&Define{Routine: r})
	if err != nil {
		return nil, err
	}
	return marshalNode(node)
}

func marshalNode(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(tag, v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
}

func str(v string) *yaml.Node {
	return scalar("!!str", v)
}

func mapping(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: kv}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func encodeBlock(stmts []Stmt) (*yaml.Node, error) {
	seq := sequence()
	for _, s := range stmts {
		n, err := encodeStmt(s)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, n)
	}
	return seq, nil
}

func encodeStmt(s Stmt) (*yaml.Node, error) {
	switch x := s.(type) {
	case *Declare:
		items := sequence()
		for _, v := range x.Vars {
			item := mapping(str("name"), str(v.Name), str("type"), str(v.Type.String()))
			if v.Init != nil {
				init, err := encodeExpr(v.Init)
				if err != nil {
					return nil, err
				}
				item.Content = append(item.Content, str("init"), init)
			}
			items.Content = append(items.Content, item)
		}
		return mapping(str("declare"), items), nil

	case *Set:
		var target *yaml.Node
		if id, ok := x.Target.(*Ident); ok {
			target = str(id.Name)
		} else {
			var err error
			if target, err = encodeExpr(x.Target); err != nil {
				return nil, err
			}
		}
		val, err := encodeExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return mapping(str("set"), target, str("value"), val), nil

	case *If:
		if len(x.Branches) == 0 {
			return nil, fmt.Errorf("if statement without branches")
		}
		first := x.Branches[0]
		cond, body, err := encodeBranch(first)
		if err != nil {
			return nil, err
		}
		out := mapping(str("if"), cond, str("then"), body)
		if len(x.Branches) > 1 {
			arms := sequence()
			for _, b := range x.Branches[1:] {
				c, bb, err := encodeBranch(b)
				if err != nil {
					return nil, err
				}
				arms.Content = append(arms.Content, mapping(str("cond"), c, str("then"), bb))
			}
			out.Content = append(out.Content, str("elseif"), arms)
		}
		if x.Else != nil {
			e, err := encodeBlock(x.Else)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, str("else"), e)
		}
		return out, nil

	case *While:
		cond, err := encodeExpr(x.Cond)
		if err != nil {
			return nil, err
		}
		body, err := encodeBlock(x.Body)
		if err != nil {
			return nil, err
		}
		return mapping(str("while"), cond, str("do"), body), nil

	case *ForRange:
		from, err := encodeExpr(x.From)
		if err != nil {
			return nil, err
		}
		to, err := encodeExpr(x.To)
		if err != nil {
			return nil, err
		}
		body, err := encodeBlock(x.Body)
		if err != nil {
			return nil, err
		}
		return mapping(str("for"), str(x.Var), str("from"), from, str("to"), to, str("do"), body), nil

	case *ForEach:
		in, err := encodeExpr(x.In)
		if err != nil {
			return nil, err
		}
		body, err := encodeBlock(x.Body)
		if err != nil {
			return nil, err
		}
		return mapping(str("for"), str(x.Var), str("in"), in, str("do"), body), nil

	case *Try:
		body, err := encodeBlock(x.Body)
		if err != nil {
			return nil, err
		}
		out := mapping(str("try"), body)
		if x.Catch != nil {
			c, err := encodeBlock(x.Catch)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, str("catch"), c)
		}
		if x.Finally != nil {
			f, err := encodeBlock(x.Finally)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, str("finally"), f)
		}
		return out, nil

	case *Throw:
		msg, err := encodeExpr(x.Message)
		if err != nil {
			return nil, err
		}
		return mapping(str("throw"), msg), nil

	case *Break:
		return str("break"), nil

	case *Return:
		if x.Value == nil {
			return str("return"), nil
		}
		v, err := encodeExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return mapping(str("return"), v), nil

	case *Print:
		v, err := encodeExpr(x.Value)
		if err != nil {
			return nil, err
		}
		out := mapping(str("print"), v)
		if x.Severity != "" && x.Severity != SeverityInfo {
			out.Content = append(out.Content, str("severity"), str(string(x.Severity)))
		}
		return out, nil

	case *Execute:
		out := mapping(str("execute"), str(x.Var), str("query"), str(x.Query))
		if x.PersistInto != "" {
			out.Content = append(out.Content, str("persist"), str(x.PersistInto))
		}
		return out, nil

	case *CallStmt:
		return encodeCall(x.Call)

	case *Define:
		return encodeRoutine(x.Routine)

	case *Drop:
		return mapping(str("delete_procedure"), str(x.Name)), nil
	}
	return nil, fmt.Errorf("cannot encode statement %T", s)
}

func encodeBranch(b Branch) (*yaml.Node, *yaml.Node, error) {
	cond, err := encodeExpr(b.Cond)
	if err != nil {
		return nil, nil, err
	}
	body, err := encodeBlock(b.Body)
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

func encodeRoutine(r *Routine) (*yaml.Node, error) {
	out := mapping(str(string(r.Kind)), str(r.Name))
	if len(r.Params) > 0 {
		params := sequence()
		for _, p := range r.Params {
			item := mapping(str("name"), str(p.Name), str("type"), str(p.Type.String()))
			if p.Mode != scope.ModeIn && p.Mode != scope.ModeLocal {
				item.Content = append(item.Content, str("mode"), str(string(p.Mode)))
			}
			params.Content = append(params.Content, item)
		}
		out.Content = append(out.Content, str("params"), params)
	}
	if r.IsFunction() && !r.Returns.IsAny() {
		out.Content = append(out.Content, str("returns"), str(r.Returns.String()))
	}
	body, err := encodeBlock(r.Body)
	if err != nil {
		return nil, err
	}
	out.Content = append(out.Content, str("body"), body)
	return out, nil
}

func encodeCall(c *Call) (*yaml.Node, error) {
	out := mapping(str("call"), str(c.Name))
	if len(c.Args) > 0 {
		args, err := encodeExprs(c.Args)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, str("args"), args)
	}
	return out, nil
}

func encodeExprs(exprs []Expr) (*yaml.Node, error) {
	seq := sequence()
	for _, e := range exprs {
		n, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, n)
	}
	return seq, nil
}

var opKeys = map[BinaryOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpGt: "gt", OpLe: "le", OpGe: "ge",
	OpAnd: "and", OpOr: "or", OpConcat: "concat",
}

func encodeExpr(e Expr) (*yaml.Node, error) {
	switch x := e.(type) {
	case *Literal:
		return encodeLiteral(x.Value)
	case *Ident:
		return mapping(str("var"), str(x.Name)), nil
	case *Unary:
		v, err := encodeExpr(x.X)
		if err != nil {
			return nil, err
		}
		return mapping(str("neg"), v), nil
	case *Binary:
		key, ok := opKeys[x.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", x.Op)
		}
		operands, err := encodeExprs([]Expr{x.Left, x.Right})
		if err != nil {
			return nil, err
		}
		operands.Style = yaml.FlowStyle
		return mapping(str(key), operands), nil
	case *Call:
		return encodeCall(x)
	case *ArrayLit:
		elems, err := encodeExprs(x.Elems)
		if err != nil {
			return nil, err
		}
		return mapping(str("array"), elems), nil
	case *DocumentLit:
		doc := mapping()
		for _, f := range x.Fields {
			v, err := encodeExpr(f.Value)
			if err != nil {
				return nil, err
			}
			doc.Content = append(doc.Content, str(f.Key), v)
		}
		return mapping(str("document"), doc), nil
	case *Index:
		target, err := encodeExpr(x.X)
		if err != nil {
			return nil, err
		}
		idx, err := encodeExpr(x.Index)
		if err != nil {
			return nil, err
		}
		return mapping(str("index"), target, str("at"), idx), nil
	}
	return nil, fmt.Errorf("cannot encode expression %T", e)
}

func encodeLiteral(v value.Value) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil, value.Null:
		return scalar("!!null", "null"), nil
	case value.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(x))), nil
	case value.Int:
		return scalar("!!int", strconv.FormatInt(int64(x), 10)), nil
	case value.Float:
		f := float64(x)
		switch {
		case math.IsNaN(f):
			return scalar("!!float", ".nan"), nil
		case math.IsInf(f, 1):
			return scalar("!!float", ".inf"), nil
		case math.IsInf(f, -1):
			return scalar("!!float", "-.inf"), nil
		}
		return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64)), nil
	case value.String:
		return str(string(x)), nil
	case value.Date:
		return mapping(str("date"), str(dates.Format(x.Time()))), nil
	case *value.Array:
		return encodeExpr(literalArray(x))
	case *value.Document:
		return encodeExpr(literalDocument(x))
	}
	return nil, fmt.Errorf("cannot encode literal %T", v)
}

func literalArray(a *value.Array) *ArrayLit {
	out := &ArrayLit{}
	for _, e := range a.Elems() {
		out.Elems = append(out.Elems, &Literal{Value: e})
	}
	return out
}

func literalDocument(d *value.Document) *DocumentLit {
	out := &DocumentLit{}
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out.Fields = append(out.Fields, Field{Key: k, Value: &Literal{Value: v}})
	}
	return out
}
