package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

// FromNative converts a Go value produced by a database driver, a JSON
// decoder or a caller into a Value.
func FromNative(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		return Float(f), nil
	case string:
		return String(v), nil
	case []byte:
		return String(string(v)), nil
	case time.Time:
		return NewDate(v), nil
	case []any:
		out := &Array{elems: make([]Value, 0, len(v))}
		for _, e := range v {
			ev, err := FromNative(e)
			if err != nil {
				return nil, err
			}
			out.elems = append(out.elems, ev)
		}
		return out, nil
	case []string:
		out := &Array{elems: make([]Value, 0, len(v))}
		for _, e := range v {
			out.elems = append(out.elems, String(e))
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := NewDocument()
		for _, k := range keys {
			ev, err := FromNative(v[k])
			if err != nil {
				return nil, err
			}
			doc.Set(k, ev)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unsupported native value of type %T", x)
}

// ToNative converts v into plain Go values. Dates become time.Time.
func ToNative(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case String:
		return string(x)
	case Date:
		return x.t
	case *Array:
		out := make([]any, len(x.elems))
		for i, e := range x.elems {
			out[i] = ToNative(e)
		}
		return out
	case *Document:
		out := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			out[k] = ToNative(x.vals[k])
		}
		return out
	}
	return nil
}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return []byte(formatFloat(float64(f))), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateString(d))
}

func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range a.elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(e)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON writes keys in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		b, err := marshalValue(d.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// EncodeJSON renders v as JSON. Document key order is preserved.
func EncodeJSON(v Value) ([]byte, error) {
	return marshalValue(v)
}

// DecodeJSON parses JSON into a Value, keeping object key order.
// Integral numbers decode as Int, others as Float. Dates come back as strings.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			arr := &Array{}
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.elems = append(arr.elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			doc := NewDocument()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", kt)
				}
				e, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				doc.Set(key, e)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	}
	return FromNative(tok)
}
