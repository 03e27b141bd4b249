package value

import (
	"strconv"
	"strings"
)

// ToString renders v as PRINT and || show it.
//
// Strings render raw at the top level and quoted inside containers.
func ToString(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v, false)
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeValue(sb *strings.Builder, v Value, nested bool) {
	switch x := v.(type) {
	case nil, Null:
		if nested {
			sb.WriteString("null")
		} else {
			sb.WriteString("NULL")
		}
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		sb.WriteString(formatFloat(float64(x)))
	case String:
		if nested {
			sb.WriteString(strconv.Quote(string(x)))
		} else {
			sb.WriteString(string(x))
		}
	case Date:
		if nested {
			sb.WriteString(strconv.Quote(dateString(x)))
		} else {
			sb.WriteString(dateString(x))
		}
	case *Array:
		sb.WriteByte('[')
		for i, e := range x.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e, true)
		}
		sb.WriteByte(']')
	case *Document:
		sb.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			writeValue(sb, x.vals[k], true)
		}
		sb.WriteByte('}')
	}
}
