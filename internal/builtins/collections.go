package builtins

import (
	"context"

	"github.com/plesql/plesql/internal/value"
)

// Container arguments arrive as private copies, so these functions may
// build their results from them directly.

func arrayFunctions() []*Function {
	arr := value.TypeArray
	anyT := value.TypeAny
	fns := []*Function{
		{Name: "ARRAY_LENGTH", Doc: "Number of elements.", Params: []Param{param("arr", arr)}, Impl: Sync(fnArrayLength)},
		{Name: "ARRAY_APPEND", Doc: "New array with elem added at the end.",
			Params: []Param{param("arr", arr), param("elem", anyT)}, Impl: Sync(fnArrayAppend)},
		{Name: "ARRAY_PREPEND", Doc: "New array with elem added at the front.",
			Params: []Param{param("arr", arr), param("elem", anyT)}, Impl: Sync(fnArrayPrepend)},
		{Name: "ARRAY_REMOVE", Doc: "New array without any element equal to elem.",
			Params: []Param{param("arr", arr), param("elem", anyT)}, Impl: Sync(fnArrayRemove)},
		{Name: "ARRAY_CONTAINS", Doc: "Whether some element equals elem.",
			Params: []Param{param("arr", arr), param("elem", anyT)}, Impl: Sync(fnArrayContains)},
		{Name: "ARRAY_DISTINCT", Doc: "New array keeping the first occurrence of each value.",
			Params: []Param{param("arr", arr)}, Impl: Sync(fnArrayDistinct)},
	}
	for _, f := range fns {
		f.Category = "array"
	}
	return fns
}

func documentFunctions() []*Function {
	doc := value.TypeDocument
	s := value.TypeString
	fns := []*Function{
		{Name: "DOCUMENT_KEYS", Doc: "Keys in insertion order.", Params: []Param{param("doc", doc)}, Impl: Sync(fnDocumentKeys)},
		{Name: "DOCUMENT_VALUES", Doc: "Values in key insertion order.", Params: []Param{param("doc", doc)}, Impl: Sync(fnDocumentValues)},
		{Name: "DOCUMENT_GET", Doc: "Value stored under key, or NULL.",
			Params: []Param{param("doc", doc), param("key", s)}, Impl: Sync(fnDocumentGet)},
		{Name: "DOCUMENT_MERGE", Doc: "New document with the keys of both; d2 wins on collisions.",
			Params: []Param{param("d1", doc), param("d2", doc)}, Impl: Sync(fnDocumentMerge)},
		{Name: "DOCUMENT_REMOVE", Doc: "New document without key.",
			Params: []Param{param("doc", doc), param("key", s)}, Impl: Sync(fnDocumentRemove)},
		{Name: "DOCUMENT_CONTAINS", Doc: "Whether key is present.",
			Params: []Param{param("doc", doc), param("key", s)}, Impl: Sync(fnDocumentContains)},
	}
	for _, f := range fns {
		f.Category = "document"
	}
	return fns
}

func fnArrayLength(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_LENGTH", args, 0)
	if err != nil {
		return nil, err
	}
	return value.Int(a.Len()), nil
}

func fnArrayAppend(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_APPEND", args, 0)
	if err != nil {
		return nil, err
	}
	a.Append(args[1])
	return a, nil
}

func fnArrayPrepend(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_PREPEND", args, 0)
	if err != nil {
		return nil, err
	}
	return value.NewArray(append([]value.Value{args[1]}, a.Elems()...)...), nil
}

func fnArrayRemove(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_REMOVE", args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewArray()
	for _, e := range a.Elems() {
		if !value.Equal(e, args[1]) {
			out.Append(e)
		}
	}
	return out, nil
}

func fnArrayContains(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_CONTAINS", args, 0)
	if err != nil {
		return nil, err
	}
	return value.Bool(indexOf(a, args[1]) >= 0), nil
}

func fnArrayDistinct(_ context.Context, args []value.Value) (value.Value, error) {
	a, err := arrayArg("ARRAY_DISTINCT", args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewArray()
	for _, e := range a.Elems() {
		if indexOf(out, e) < 0 {
			out.Append(e)
		}
	}
	return out, nil
}

func indexOf(a *value.Array, v value.Value) int {
	for i, e := range a.Elems() {
		if value.Equal(e, v) {
			return i
		}
	}
	return -1
}

func fnDocumentKeys(_ context.Context, args []value.Value) (value.Value, error) {
	d, err := documentArg("DOCUMENT_KEYS", args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewArray()
	for _, k := range d.Keys() {
		out.Append(value.String(k))
	}
	return out, nil
}

func fnDocumentValues(_ context.Context, args []value.Value) (value.Value, error) {
	d, err := documentArg("DOCUMENT_VALUES", args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewArray()
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out.Append(v)
	}
	return out, nil
}

func fnDocumentGet(_ context.Context, args []value.Value) (value.Value, error) {
	d, err := documentArg("DOCUMENT_GET", args, 0)
	if err != nil {
		return nil, err
	}
	if value.IsNull(args[1]) {
		return value.Null{}, nil
	}
	v, ok := d.Get(str(args[1]))
	if !ok {
		return value.Null{}, nil
	}
	return v, nil
}

func fnDocumentMerge(_ context.Context, args []value.Value) (value.Value, error) {
	d1, err := documentArg("DOCUMENT_MERGE", args, 0)
	if err != nil {
		return nil, err
	}
	d2, err := documentArg("DOCUMENT_MERGE", args, 1)
	if err != nil {
		return nil, err
	}
	for _, k := range d2.Keys() {
		v, _ := d2.Get(k)
		d1.Set(k, v)
	}
	return d1, nil
}

func fnDocumentRemove(_ context.Context, args []value.Value) (value.Value, error) {
	d, err := documentArg("DOCUMENT_REMOVE", args, 0)
	if err != nil {
		return nil, err
	}
	if !value.IsNull(args[1]) {
		d.Delete(str(args[1]))
	}
	return d, nil
}

func fnDocumentContains(_ context.Context, args []value.Value) (value.Value, error) {
	d, err := documentArg("DOCUMENT_CONTAINS", args, 0)
	if err != nil {
		return nil, err
	}
	if value.IsNull(args[1]) {
		return value.Bool(false), nil
	}
	_, ok := d.Get(str(args[1]))
	return value.Bool(ok), nil
}
