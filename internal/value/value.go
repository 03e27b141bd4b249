// Package value implements the runtime values scripts compute with.
//
// A Value is one of Null, Bool, Int, Float, String, Date, *Array or
// *Document. Containers are mutable and are copied with Clone whenever the
// language semantics call for value passing.
package value

import (
	"time"

	"github.com/plesql/plesql/internal/dates"
)

// Kind identifies the concrete representation of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindArray
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOLEAN"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindDate:
		return "DATE"
	case KindArray:
		return "ARRAY"
	case KindDocument:
		return "DOCUMENT"
	}
	return "UNKNOWN"
}

// Value is a runtime value.
type Value interface {
	Kind() Kind
}

type (
	Null   struct{}
	Bool   bool
	Int    int64
	Float  float64
	String string
)

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }

// Date is an absolute instant, always held in UTC.
type Date struct {
	t time.Time
}

// NewDate returns a Date for t.
func NewDate(t time.Time) Date {
	return Date{t: t.UTC()}
}

func (Date) Kind() Kind { return KindDate }

// Time returns the instant.
func (d Date) Time() time.Time { return d.t }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Array is an ordered, mutable sequence of values.
type Array struct {
	elems []Value
}

// NewArray returns an array holding elems.
func NewArray(elems ...Value) *Array {
	out := make([]Value, len(elems))
	copy(out, elems)
	return &Array{elems: out}
}

func (*Array) Kind() Kind { return KindArray }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// At returns the element at the zero-based index i.
func (a *Array) At(i int) Value { return a.elems[i] }

// Set replaces the element at the zero-based index i.
func (a *Array) Set(i int, v Value) { a.elems[i] = v }

// Append adds v to the end of the array.
func (a *Array) Append(v Value) { a.elems = append(a.elems, v) }

// Elems returns the backing slice. Callers must not modify it.
func (a *Array) Elems() []Value { return a.elems }

// Document is a mapping from string keys to values that remembers insertion order.
type Document struct {
	keys []string
	vals map[string]Value
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{vals: make(map[string]Value)}
}

func (*Document) Kind() Kind { return KindDocument }

// Len returns the number of keys.
func (d *Document) Len() int { return len(d.keys) }

// Get returns the value stored under key.
func (d *Document) Get(key string) (Value, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (d *Document) Set(key string, v Value) {
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	if _, ok := d.vals[key]; !ok {
		return false
	}
	delete(d.vals, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case *Array:
		out := &Array{elems: make([]Value, len(x.elems))}
		for i, e := range x.elems {
			out.elems[i] = Clone(e)
		}
		return out
	case *Document:
		out := &Document{keys: make([]string, len(x.keys)), vals: make(map[string]Value, len(x.vals))}
		copy(out.keys, x.keys)
		for k, e := range x.vals {
			out.vals[k] = Clone(e)
		}
		return out
	}
	return v
}

// Truthy reports whether v is the boolean true.
func Truthy(v Value) bool {
	b, ok := v.(Bool)
	return ok && bool(b)
}

// TypeOf returns the type that best describes v.
func TypeOf(v Value) Type {
	switch x := v.(type) {
	case nil, Null:
		return Of(TypeNull)
	case Bool:
		return Of(TypeBoolean)
	case Int:
		return Of(TypeInt)
	case Float:
		return Of(TypeFloat)
	case String:
		return Of(TypeString)
	case Date:
		return Of(TypeDate)
	case *Document:
		return Of(TypeDocument)
	case *Array:
		var elem *Type
		for _, e := range x.elems {
			if IsNull(e) {
				continue
			}
			et := TypeOf(e)
			if elem == nil {
				elem = &et
				continue
			}
			if !elem.Equal(et) {
				return ArrayOf(Of(TypeAny))
			}
		}
		if elem == nil {
			return ArrayOf(Of(TypeAny))
		}
		return ArrayOf(*elem)
	}
	return Of(TypeAny)
}

// dateString renders a date value.
func dateString(d Date) string {
	return dates.Format(d.t)
}
