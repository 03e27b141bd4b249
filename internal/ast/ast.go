// Package ast defines the syntax tree the interpreter executes.
//
// The tree is a closed set of node types. Expressions implement Expr and
// statements implement Stmt; the interpreter dispatches on them with type
// switches. Trees are produced by an external parser or decoded from the
// YAML tree format with Decode.
package ast

import (
	"strings"

	"github.com/plesql/plesql/internal/scope"
	"github.com/plesql/plesql/internal/value"
)

// Pos is a source location. The zero Pos means unknown.
type Pos struct {
	Line   int
	Column int
}

// Position returns p. It lets every node embedding Pos satisfy Node.
func (p Pos) Position() Pos { return p }

// Node is any syntax tree node.
type Node interface {
	Position() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// BinaryOp is a binary operator.
type BinaryOp string

const (
	OpAdd    BinaryOp = "+"
	OpSub    BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpEq     BinaryOp = "=="
	OpNe     BinaryOp = "!="
	OpLt     BinaryOp = "<"
	OpGt     BinaryOp = ">"
	OpLe     BinaryOp = "<="
	OpGe     BinaryOp = ">="
	OpAnd    BinaryOp = "AND"
	OpOr     BinaryOp = "OR"
	OpConcat BinaryOp = "||"
)

// Severity is the level attached to PRINT output.
type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// ParseSeverity parses a severity name. An empty string means INFO.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SeverityInfo, true
	case "DEBUG":
		return SeverityDebug, true
	case "INFO":
		return SeverityInfo, true
	case "WARN", "WARNING":
		return SeverityWarn, true
	case "ERROR":
		return SeverityError, true
	}
	return "", false
}

// Rank orders severities from DEBUG (0) to ERROR (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityDebug:
		return 0
	case SeverityWarn:
		return 2
	case SeverityError:
		return 3
	}
	return 1
}

// Expressions.
type (
	// Literal is a constant value.
	Literal struct {
		Pos
		Value value.Value
	}

	// Ident references a variable.
	Ident struct {
		Pos
		Name string
	}

	// Unary is numeric negation.
	Unary struct {
		Pos
		X Expr
	}

	Binary struct {
		Pos
		Op    BinaryOp
		Left  Expr
		Right Expr
	}

	// Call invokes a user-defined routine or a built-in by name.
	Call struct {
		Pos
		Name string
		Args []Expr
	}

	ArrayLit struct {
		Pos
		Elems []Expr
	}

	DocumentLit struct {
		Pos
		Fields []Field
	}

	// Index is X[Index]. It is also a valid SET target.
	Index struct {
		Pos
		X     Expr
		Index Expr
	}
)

// Field is one key of a document literal.
type Field struct {
	Key   string
	Value Expr
}

func (*Literal) exprNode()     {}
func (*Ident) exprNode()       {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Call) exprNode()        {}
func (*ArrayLit) exprNode()    {}
func (*DocumentLit) exprNode() {}
func (*Index) exprNode()       {}

// Statements.
type (
	Declare struct {
		Pos
		Vars []VarDecl
	}

	// Set assigns Value to Target, which is an *Ident or an *Index chain
	// rooted at an *Ident.
	Set struct {
		Pos
		Target Expr
		Value  Expr
	}

	// If runs the body of the first branch whose condition holds, else Else.
	If struct {
		Pos
		Branches []Branch
		Else     []Stmt
	}

	While struct {
		Pos
		Cond Expr
		Body []Stmt
	}

	// ForRange iterates Var from From to To inclusive.
	ForRange struct {
		Pos
		Var  string
		From Expr
		To   Expr
		Body []Stmt
	}

	// ForEach iterates Var over the elements of an array.
	ForEach struct {
		Pos
		Var  string
		In   Expr
		Body []Stmt
	}

	// Try runs Body. Catch is nil when absent, likewise Finally.
	Try struct {
		Pos
		Body    []Stmt
		Catch   []Stmt
		Finally []Stmt
	}

	Throw struct {
		Pos
		Message Expr
	}

	Break struct {
		Pos
	}

	// Return leaves the current routine. Value may be nil.
	Return struct {
		Pos
		Value Expr
	}

	Print struct {
		Pos
		Value    Expr
		Severity Severity
	}

	// Execute hands Query to the query bridge and binds the rows to Var.
	// PersistInto is empty when no PERSIST clause is present.
	Execute struct {
		Pos
		Var         string
		Query       string
		PersistInto string
	}

	// CallStmt is CALL name(args) or a call used as a statement.
	CallStmt struct {
		Pos
		Call *Call
	}

	// Define is CREATE PROCEDURE or CREATE FUNCTION.
	Define struct {
		Pos
		Routine *Routine
	}

	// Drop is DELETE PROCEDURE.
	Drop struct {
		Pos
		Name string
	}
)

func (*Declare) stmtNode()  {}
func (*Set) stmtNode()      {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*ForRange) stmtNode() {}
func (*ForEach) stmtNode()  {}
func (*Try) stmtNode()      {}
func (*Throw) stmtNode()    {}
func (*Break) stmtNode()    {}
func (*Return) stmtNode()   {}
func (*Print) stmtNode()    {}
func (*Execute) stmtNode()  {}
func (*CallStmt) stmtNode() {}
func (*Define) stmtNode()   {}
func (*Drop) stmtNode()     {}

// VarDecl is one variable of a DECLARE statement. Init may be nil.
type VarDecl struct {
	Name string
	Type value.Type
	Init Expr
}

// Branch is an IF or ELSEIF arm.
type Branch struct {
	Cond Expr
	Body []Stmt
}

// RoutineKind distinguishes procedures from functions.
type RoutineKind string

const (
	KindProcedure RoutineKind = "procedure"
	KindFunction  RoutineKind = "function"
)

// Param is a routine parameter.
type Param struct {
	Name string
	Type value.Type
	Mode scope.Mode
}

// Routine is a user-defined procedure or function.
type Routine struct {
	Pos
	Kind    RoutineKind
	Name    string
	Params  []Param
	Returns value.Type
	Body    []Stmt
}

// Signature renders the routine header, e.g.
// "add_tax(amount FLOAT, OUT total FLOAT) RETURNS FLOAT".
func (r *Routine) Signature() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteByte('(')
	for i, p := range r.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Mode == scope.ModeOut || p.Mode == scope.ModeInOut {
			sb.WriteString(string(p.Mode))
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Name)
		sb.WriteByte(' ')
		sb.WriteString(p.Type.String())
	}
	sb.WriteByte(')')
	if r.IsFunction() {
		sb.WriteString(" RETURNS ")
		sb.WriteString(r.Returns.String())
	}
	return sb.String()
}

// IsFunction reports whether r returns a value.
func (r *Routine) IsFunction() bool {
	return r.Kind == KindFunction
}

// Program is a top-level statement sequence.
type Program struct {
	Body []Stmt
}
