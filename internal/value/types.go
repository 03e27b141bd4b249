package value

import (
	"fmt"
	"strings"
)

// TypeName names a declared type.
type TypeName string

const (
	TypeAny      TypeName = "ANY"
	TypeNull     TypeName = "NULL" // only reported by TypeOf
	TypeInt      TypeName = "INT"
	TypeFloat    TypeName = "FLOAT"
	TypeNumber   TypeName = "NUMBER"
	TypeString   TypeName = "STRING"
	TypeDate     TypeName = "DATE"
	TypeBoolean  TypeName = "BOOLEAN"
	TypeDocument TypeName = "DOCUMENT"
	TypeArray    TypeName = "ARRAY"
)

// Type is a declared variable, parameter or return type.
// Elem is set only for ARRAY types.
type Type struct {
	Name TypeName
	Elem *Type
}

// Of returns the scalar or document type with the given name.
func Of(name TypeName) Type {
	if name == TypeArray {
		return ArrayOf(Of(TypeAny))
	}
	return Type{Name: name}
}

// ArrayOf returns the type ARRAY OF elem.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{Name: TypeArray, Elem: &e}
}

// IsAny reports whether t accepts every value unchanged.
func (t Type) IsAny() bool {
	return t.Name == TypeAny || t.Name == ""
}

// IsNumeric reports whether t is one of the numeric types.
func (t Type) IsNumeric() bool {
	switch t.Name {
	case TypeInt, TypeFloat, TypeNumber:
		return true
	}
	return false
}

// Equal reports whether two types are identical.
func (t Type) Equal(other Type) bool {
	if t.Name != other.Name {
		return false
	}
	if t.Name != TypeArray {
		return true
	}
	return t.elem().Equal(other.elem())
}

func (t Type) elem() Type {
	if t.Elem == nil {
		return Of(TypeAny)
	}
	return *t.Elem
}

// String renders the type the way scripts spell it.
func (t Type) String() string {
	if t.Name == "" {
		return string(TypeAny)
	}
	if t.Name == TypeArray {
		if t.Elem == nil || t.Elem.IsAny() {
			return string(TypeArray)
		}
		return "ARRAY OF " + t.Elem.String()
	}
	return string(t.Name)
}

var typeAliases = map[string]TypeName{
	"ANY":      TypeAny,
	"INT":      TypeInt,
	"INTEGER":  TypeInt,
	"FLOAT":    TypeFloat,
	"DOUBLE":   TypeFloat,
	"NUMBER":   TypeNumber,
	"STRING":   TypeString,
	"DATE":     TypeDate,
	"BOOLEAN":  TypeBoolean,
	"BOOL":     TypeBoolean,
	"DOCUMENT": TypeDocument,
}

// ParseType parses a textual type such as "NUMBER" or "ARRAY OF STRING".
func ParseType(s string) (Type, error) {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) == 0 {
		return Type{}, fmt.Errorf("empty type")
	}
	if fields[0] == string(TypeArray) {
		if len(fields) == 1 {
			return ArrayOf(Of(TypeAny)), nil
		}
		if fields[1] != "OF" || len(fields) == 2 {
			return Type{}, fmt.Errorf("invalid array type %q", s)
		}
		elem, err := ParseType(strings.Join(fields[2:], " "))
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	}
	if len(fields) != 1 {
		return Type{}, fmt.Errorf("invalid type %q", s)
	}
	name, ok := typeAliases[fields[0]]
	if !ok {
		return Type{}, fmt.Errorf("unknown type %q", s)
	}
	return Of(name), nil
}

// MustParseType is like ParseType but panics on error.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}
