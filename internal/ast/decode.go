package ast

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plesql/plesql/internal/dates"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// Decode parses a program written in the YAML tree format. JSON input is
// accepted too since it is valid YAML.
func Decode(data []byte) (*Program, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errs.Wrap(errs.KindSyntax, err, "parse program")
	}
	prog := &Program{}
	if len(root.Content) == 0 {
		return prog, nil
	}
	top := root.Content[0]
	if top.Kind == yaml.MappingNode {
		// A single statement.
		stmt, err := decodeStmt(top)
		if err != nil {
			return nil, err
		}
		prog.Body = []Stmt{stmt}
		return prog, nil
	}
	body, err := decodeBlock(top)
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

// DecodeRoutine parses a single procedure or function definition.
func DecodeRoutine(data []byte) (*Routine, error) {
	prog, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(prog.Body) != 1 {
		return nil, errs.New(errs.KindSyntax, "expected exactly one procedure or function definition")
	}
	def, ok := prog.Body[0].(*Define)
	if !ok {
		return nil, errs.New(errs.KindSyntax, "expected a procedure or function definition")
	}
	return def.Routine, nil
}

// DecodeExpr parses a single expression.
func DecodeExpr(data []byte) (Expr, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errs.Wrap(errs.KindSyntax, err, "parse expression")
	}
	if len(root.Content) == 0 {
		return &Literal{Value: value.Null{}}, nil
	}
	return decodeExpr(root.Content[0])
}

func syntaxErr(node *yaml.Node, format string, args ...any) *errs.Error {
	return errs.Newf(errs.KindSyntax, format, args...).At(node.Line, node.Column)
}

func posOf(node *yaml.Node) Pos {
	return Pos{Line: node.Line, Column: node.Column}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func decodeBlock(node *yaml.Node) ([]Stmt, error) {
	node = resolveAlias(node)
	if isNull(node) {
		return []Stmt{}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, syntaxErr(node, "expected a list of statements")
	}
	out := make([]Stmt, 0, len(node.Content))
	for _, item := range node.Content {
		stmt, err := decodeStmt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

// fields maps the keys of a statement mapping to their values.
type fields struct {
	node *yaml.Node
	head string
	vals map[string]*yaml.Node
	used map[string]bool
}

func newFields(node *yaml.Node) (*fields, error) {
	f := &fields{node: node, vals: make(map[string]*yaml.Node), used: make(map[string]bool)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(node.Content[i].Value))
		if _, dup := f.vals[key]; dup {
			return nil, syntaxErr(node.Content[i], "duplicate key %q", key)
		}
		if i == 0 {
			f.head = key
		}
		f.vals[key] = resolveAlias(node.Content[i+1])
	}
	if f.head == "" {
		return nil, syntaxErr(node, "empty statement")
	}
	return f, nil
}

func (f *fields) get(key string) *yaml.Node {
	f.used[key] = true
	return f.vals[key]
}

func (f *fields) require(key string) (*yaml.Node, error) {
	n := f.get(key)
	if n == nil {
		return nil, syntaxErr(f.node, "%s statement is missing %q", f.head, key)
	}
	return n, nil
}

func (f *fields) done() error {
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(f.node.Content[i].Value))
		if !f.used[key] {
			return syntaxErr(f.node.Content[i], "unexpected key %q in %s statement", key, f.head)
		}
	}
	return nil
}

func scalarString(node *yaml.Node, what string) (string, error) {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return "", syntaxErr(orNode(node), "%s must be a scalar", what)
	}
	s := strings.TrimSpace(node.Value)
	if s == "" {
		return "", syntaxErr(node, "%s must not be empty", what)
	}
	return s, nil
}

func orNode(node *yaml.Node) *yaml.Node {
	if node == nil {
		return &yaml.Node{}
	}
	return node
}

func decodeType(node *yaml.Node) (value.Type, error) {
	s, err := scalarString(node, "type")
	if err != nil {
		return value.Type{}, err
	}
	t, err := value.ParseType(s)
	if err != nil {
		return value.Type{}, syntaxErr(node, "%v", err)
	}
	return t, nil
}

func decodeStmt(node *yaml.Node) (Stmt, error) {
	node = resolveAlias(node)
	pos := posOf(node)
	if node.Kind == yaml.ScalarNode {
		switch strings.ToLower(strings.TrimSpace(node.Value)) {
		case "break":
			return &Break{Pos: pos}, nil
		case "return":
			return &Return{Pos: pos}, nil
		}
		return nil, syntaxErr(node, "unknown statement %q", node.Value)
	}
	if node.Kind != yaml.MappingNode {
		return nil, syntaxErr(node, "statement must be a mapping")
	}
	f, err := newFields(node)
	if err != nil {
		return nil, err
	}

	var stmt Stmt
	switch f.head {
	case "declare":
		stmt, err = decodeDeclare(f, pos)
	case "set":
		stmt, err = decodeSet(f, pos)
	case "if":
		stmt, err = decodeIf(f, pos)
	case "while":
		stmt, err = decodeWhile(f, pos)
	case "for":
		stmt, err = decodeFor(f, pos)
	case "try":
		stmt, err = decodeTry(f, pos)
	case "throw":
		var msg Expr
		msg, err = decodeExpr(f.get("throw"))
		stmt = &Throw{Pos: pos, Message: msg}
	case "break":
		stmt = &Break{Pos: pos}
	case "return":
		ret := &Return{Pos: pos}
		if n := f.get("return"); n != nil && !isNull(n) {
			ret.Value, err = decodeExpr(n)
		}
		stmt = ret
	case "print":
		stmt, err = decodePrint(f, pos)
	case "execute":
		stmt, err = decodeExecute(f, pos)
	case "call":
		var call *Call
		call, err = decodeCall(f, pos)
		stmt = &CallStmt{Pos: pos, Call: call}
	case "procedure", "function":
		var r *Routine
		r, err = decodeRoutine(f, pos)
		stmt = &Define{Pos: pos, Routine: r}
	case "delete_procedure", "delete_function":
		var name string
		name, err = scalarString(f.get(f.head), "name")
		stmt = &Drop{Pos: pos, Name: name}
	default:
		return nil, syntaxErr(node, "unknown statement %q", f.head)
	}
	if err != nil {
		return nil, err
	}
	f.used[f.head] = true
	if err := f.done(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func decodeDeclare(f *fields, pos Pos) (Stmt, error) {
	n := f.get("declare")
	items := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		items = n.Content
	}
	decl := &Declare{Pos: pos}
	for _, item := range items {
		item = resolveAlias(item)
		if item.Kind != yaml.MappingNode {
			return nil, syntaxErr(item, "declare entries must be mappings with name and type")
		}
		vf, err := newFields(item)
		if err != nil {
			return nil, err
		}
		nameNode, err := vf.require("name")
		if err != nil {
			return nil, err
		}
		name, err := scalarString(nameNode, "variable name")
		if err != nil {
			return nil, err
		}
		typeNode, err := vf.require("type")
		if err != nil {
			return nil, err
		}
		t, err := decodeType(typeNode)
		if err != nil {
			return nil, err
		}
		v := VarDecl{Name: name, Type: t}
		if init := vf.get("init"); init != nil {
			if v.Init, err = decodeExpr(init); err != nil {
				return nil, err
			}
		}
		if err := vf.done(); err != nil {
			return nil, err
		}
		decl.Vars = append(decl.Vars, v)
	}
	if len(decl.Vars) == 0 {
		return nil, syntaxErr(f.node, "declare needs at least one variable")
	}
	return decl, nil
}

func decodeSet(f *fields, pos Pos) (Stmt, error) {
	targetNode := f.get("set")
	var target Expr
	if targetNode.Kind == yaml.ScalarNode {
		name, err := scalarString(targetNode, "assignment target")
		if err != nil {
			return nil, err
		}
		target = &Ident{Pos: posOf(targetNode), Name: name}
	} else {
		var err error
		if target, err = decodeExpr(targetNode); err != nil {
			return nil, err
		}
		if !IsAssignable(target) {
			return nil, syntaxErr(targetNode, "assignment target must be a variable or an index expression")
		}
	}
	valNode, err := f.require("value")
	if err != nil {
		return nil, err
	}
	val, err := decodeExpr(valNode)
	if err != nil {
		return nil, err
	}
	return &Set{Pos: pos, Target: target, Value: val}, nil
}

// IsAssignable reports whether e names a variable or an element of one,
// so it may appear on the left of SET or be passed to an OUT parameter.
func IsAssignable(e Expr) bool {
	switch x := e.(type) {
	case *Ident:
		return true
	case *Index:
		return IsAssignable(x.X)
	}
	return false
}

func decodeIf(f *fields, pos Pos) (Stmt, error) {
	cond, err := decodeExpr(f.get("if"))
	if err != nil {
		return nil, err
	}
	thenNode, err := f.require("then")
	if err != nil {
		return nil, err
	}
	body, err := decodeBlock(thenNode)
	if err != nil {
		return nil, err
	}
	stmt := &If{Pos: pos, Branches: []Branch{{Cond: cond, Body: body}}}

	if n := f.get("elseif"); n != nil {
		if n.Kind != yaml.SequenceNode {
			return nil, syntaxErr(n, "elseif must be a list of {cond, then} mappings")
		}
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, syntaxErr(item, "elseif entries must be mappings")
			}
			bf, err := newFields(item)
			if err != nil {
				return nil, err
			}
			condNode, err := bf.require("cond")
			if err != nil {
				return nil, err
			}
			c, err := decodeExpr(condNode)
			if err != nil {
				return nil, err
			}
			thenNode, err := bf.require("then")
			if err != nil {
				return nil, err
			}
			b, err := decodeBlock(thenNode)
			if err != nil {
				return nil, err
			}
			if err := bf.done(); err != nil {
				return nil, err
			}
			stmt.Branches = append(stmt.Branches, Branch{Cond: c, Body: b})
		}
	}
	if n := f.get("else"); n != nil {
		if stmt.Else, err = decodeBlock(n); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodeWhile(f *fields, pos Pos) (Stmt, error) {
	cond, err := decodeExpr(f.get("while"))
	if err != nil {
		return nil, err
	}
	doNode, err := f.require("do")
	if err != nil {
		return nil, err
	}
	body, err := decodeBlock(doNode)
	if err != nil {
		return nil, err
	}
	return &While{Pos: pos, Cond: cond, Body: body}, nil
}

func decodeFor(f *fields, pos Pos) (Stmt, error) {
	name, err := scalarString(f.get("for"), "loop variable")
	if err != nil {
		return nil, err
	}
	doNode, err := f.require("do")
	if err != nil {
		return nil, err
	}
	body, err := decodeBlock(doNode)
	if err != nil {
		return nil, err
	}
	if in := f.get("in"); in != nil {
		arr, err := decodeExpr(in)
		if err != nil {
			return nil, err
		}
		return &ForEach{Pos: pos, Var: name, In: arr, Body: body}, nil
	}
	fromNode, err := f.require("from")
	if err != nil {
		return nil, err
	}
	toNode, err := f.require("to")
	if err != nil {
		return nil, err
	}
	from, err := decodeExpr(fromNode)
	if err != nil {
		return nil, err
	}
	to, err := decodeExpr(toNode)
	if err != nil {
		return nil, err
	}
	return &ForRange{Pos: pos, Var: name, From: from, To: to, Body: body}, nil
}

func decodeTry(f *fields, pos Pos) (Stmt, error) {
	body, err := decodeBlock(f.get("try"))
	if err != nil {
		return nil, err
	}
	stmt := &Try{Pos: pos, Body: body}
	if n := f.get("catch"); n != nil {
		if stmt.Catch, err = decodeBlock(n); err != nil {
			return nil, err
		}
	}
	if n := f.get("finally"); n != nil {
		if stmt.Finally, err = decodeBlock(n); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodePrint(f *fields, pos Pos) (Stmt, error) {
	val, err := decodeExpr(f.get("print"))
	if err != nil {
		return nil, err
	}
	stmt := &Print{Pos: pos, Value: val, Severity: SeverityInfo}
	if n := f.get("severity"); n != nil {
		s, err := scalarString(n, "severity")
		if err != nil {
			return nil, err
		}
		sev, ok := ParseSeverity(s)
		if !ok {
			return nil, syntaxErr(n, "unknown severity %q", s)
		}
		stmt.Severity = sev
	}
	return stmt, nil
}

func decodeExecute(f *fields, pos Pos) (Stmt, error) {
	name, err := scalarString(f.get("execute"), "execute target")
	if err != nil {
		return nil, err
	}
	queryNode, err := f.require("query")
	if err != nil {
		return nil, err
	}
	query, err := scalarString(queryNode, "query")
	if err != nil {
		return nil, err
	}
	stmt := &Execute{Pos: pos, Var: name, Query: query}
	if n := f.get("persist"); n != nil {
		if stmt.PersistInto, err = scalarString(n, "persist target"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodeCall(f *fields, pos Pos) (*Call, error) {
	name, err := scalarString(f.get("call"), "routine name")
	if err != nil {
		return nil, err
	}
	call := &Call{Pos: pos, Name: name}
	if n := f.get("args"); n != nil && !isNull(n) {
		if call.Args, err = decodeExprList(n); err != nil {
			return nil, err
		}
	}
	return call, nil
}

func decodeRoutine(f *fields, pos Pos) (*Routine, error) {
	name, err := scalarString(f.get(f.head), f.head+" name")
	if err != nil {
		return nil, err
	}
	r := &Routine{Pos: pos, Kind: RoutineKind(f.head), Name: name, Returns: value.Of(value.TypeAny)}
	if n := f.get("params"); n != nil && !isNull(n) {
		if n.Kind != yaml.SequenceNode {
			return nil, syntaxErr(n, "params must be a list")
		}
		for _, item := range n.Content {
			p, err := decodeParam(resolveAlias(item))
			if err != nil {
				return nil, err
			}
			for _, existing := range r.Params {
				if existing.Name == p.Name {
					return nil, syntaxErr(item, "duplicate parameter %q", p.Name)
				}
			}
			r.Params = append(r.Params, p)
		}
	}
	if n := f.get("returns"); n != nil {
		if r.Kind != KindFunction {
			return nil, syntaxErr(n, "only functions declare a return type")
		}
		if r.Returns, err = decodeType(n); err != nil {
			return nil, err
		}
	}
	bodyNode, err := f.require("body")
	if err != nil {
		return nil, err
	}
	if r.Body, err = decodeBlock(bodyNode); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeParam(node *yaml.Node) (Param, error) {
	if node.Kind != yaml.MappingNode {
		return Param{}, syntaxErr(node, "parameters must be mappings with name and type")
	}
	pf, err := newFields(node)
	if err != nil {
		return Param{}, err
	}
	nameNode, err := pf.require("name")
	if err != nil {
		return Param{}, err
	}
	name, err := scalarString(nameNode, "parameter name")
	if err != nil {
		return Param{}, err
	}
	typeNode, err := pf.require("type")
	if err != nil {
		return Param{}, err
	}
	t, err := decodeType(typeNode)
	if err != nil {
		return Param{}, err
	}
	p := Param{Name: name, Type: t, Mode: scope.ModeIn}
	if n := pf.get("mode"); n != nil {
		var ok bool
		if p.Mode, ok = scope.ParseMode(n.Value); !ok {
			return Param{}, syntaxErr(n, "unknown parameter mode %q", n.Value)
		}
	}
	if err := pf.done(); err != nil {
		return Param{}, err
	}
	return p, nil
}

var binaryKeys = map[string]BinaryOp{
	"add": OpAdd, "+": OpAdd,
	"sub": OpSub, "-": OpSub,
	"mul": OpMul, "*": OpMul,
	"div": OpDiv, "/": OpDiv,
	"eq": OpEq, "==": OpEq, "=": OpEq,
	"ne": OpNe, "!=": OpNe, "<>": OpNe,
	"lt": OpLt, "<": OpLt,
	"gt": OpGt, ">": OpGt,
	"le": OpLe, "<=": OpLe,
	"ge": OpGe, ">=": OpGe,
	"and": OpAnd,
	"or":  OpOr,
	"concat": OpConcat, "||": OpConcat,
}

// chainable operators accept more than two operands and fold left.
func chainable(op BinaryOp) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpAnd, OpOr, OpConcat:
		return true
	}
	return false
}

func decodeExprList(node *yaml.Node) ([]Expr, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.SequenceNode {
		return nil, syntaxErr(node, "expected a list of expressions")
	}
	out := make([]Expr, 0, len(node.Content))
	for _, item := range node.Content {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(node *yaml.Node) (Expr, error) {
	node = resolveAlias(node)
	if node == nil {
		return nil, errs.New(errs.KindSyntax, "missing expression")
	}
	pos := posOf(node)
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := decodeScalar(node)
		if err != nil {
			return nil, err
		}
		return &Literal{Pos: pos, Value: v}, nil
	case yaml.SequenceNode:
		return nil, syntaxErr(node, "bare lists are not expressions; use {array: [...]}")
	case yaml.MappingNode:
	default:
		return nil, syntaxErr(node, "unsupported expression")
	}

	if len(node.Content) == 0 {
		return nil, syntaxErr(node, "empty expression")
	}
	key := strings.ToLower(strings.TrimSpace(node.Content[0].Value))
	arg := resolveAlias(node.Content[1])

	switch key {
	case "index":
		if len(node.Content) != 4 || strings.ToLower(node.Content[2].Value) != "at" {
			return nil, syntaxErr(node, "index expression needs exactly the keys index and at")
		}
		x, err := decodeExpr(arg)
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(node.Content[3])
		if err != nil {
			return nil, err
		}
		return &Index{Pos: pos, X: x, Index: idx}, nil
	case "call":
		f, err := newFields(node)
		if err != nil {
			return nil, err
		}
		call, err := decodeCall(f, pos)
		if err != nil {
			return nil, err
		}
		if err := f.done(); err != nil {
			return nil, err
		}
		return call, nil
	}

	if len(node.Content) != 2 {
		return nil, syntaxErr(node, "%s expression takes a single key", key)
	}
	switch key {
	case "var":
		name, err := scalarString(arg, "variable name")
		if err != nil {
			return nil, err
		}
		return &Ident{Pos: pos, Name: name}, nil
	case "str":
		if arg.Kind != yaml.ScalarNode {
			return nil, syntaxErr(arg, "str literal must be a scalar")
		}
		return &Literal{Pos: pos, Value: value.String(arg.Value)}, nil
	case "date":
		s, err := scalarString(arg, "date literal")
		if err != nil {
			return nil, err
		}
		t, err := dates.Parse(s)
		if err != nil {
			return nil, syntaxErr(arg, "%v", err)
		}
		return &Literal{Pos: pos, Value: value.NewDate(t)}, nil
	case "null":
		return &Literal{Pos: pos, Value: value.Null{}}, nil
	case "neg":
		x, err := decodeExpr(arg)
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: pos, X: x}, nil
	case "array":
		if isNull(arg) {
			return &ArrayLit{Pos: pos}, nil
		}
		elems, err := decodeExprList(arg)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{Pos: pos, Elems: elems}, nil
	case "document":
		doc := &DocumentLit{Pos: pos}
		if isNull(arg) {
			return doc, nil
		}
		if arg.Kind != yaml.MappingNode {
			return nil, syntaxErr(arg, "document literal must be a mapping")
		}
		seen := make(map[string]bool)
		for i := 0; i+1 < len(arg.Content); i += 2 {
			k := arg.Content[i].Value
			if seen[k] {
				return nil, syntaxErr(arg.Content[i], "duplicate document key %q", k)
			}
			seen[k] = true
			v, err := decodeExpr(arg.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc.Fields = append(doc.Fields, Field{Key: k, Value: v})
		}
		return doc, nil
	}

	op, ok := binaryKeys[key]
	if !ok {
		return nil, syntaxErr(node, "unknown expression %q", key)
	}
	operands, err := decodeExprList(arg)
	if err != nil {
		return nil, err
	}
	if len(operands) < 2 || (len(operands) > 2 && !chainable(op)) {
		return nil, syntaxErr(arg, "operator %s expects 2 operands, got %d", op, len(operands))
	}
	expr := operands[0]
	for _, right := range operands[1:] {
		expr = &Binary{Pos: pos, Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func decodeScalar(node *yaml.Node) (value.Value, error) {
	switch node.Tag {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, syntaxErr(node, "invalid boolean %q", node.Value)
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return nil, syntaxErr(node, "invalid integer %q", node.Value)
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, syntaxErr(node, "invalid number %q", node.Value)
		}
		return value.Float(f), nil
	case "!!timestamp":
		if t, err := dates.Parse(node.Value); err == nil {
			return value.NewDate(t), nil
		}
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return nil, syntaxErr(node, "invalid date %q", node.Value)
		}
		return value.NewDate(t), nil
	case "!!str", "":
		return value.String(node.Value), nil
	}
	return nil, syntaxErr(node, "unsupported scalar tag %s", node.Tag)
}
