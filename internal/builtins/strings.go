package builtins

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

// Casers keep state between calls, so each call builds its own.
func toUpper(s string) string { return cases.Upper(language.Und).String(s) }

func toLower(s string) string { return cases.Lower(language.Und).String(s) }

func stringFunctions() []*Function {
	s := value.TypeString
	fns := []*Function{
		{Name: "LENGTH", Doc: "Number of characters in s.", Params: []Param{param("s", s)}, Impl: Sync(fnLength)},
		{Name: "SUBSTR", Doc: "Substring starting at the 1-based position start, optionally limited to len characters.",
			Params: []Param{param("s", s), param("start", value.TypeInt), optional("len", value.TypeInt)}, Impl: Sync(fnSubstr)},
		{Name: "UPPER", Doc: "Upper-cases s.", Params: []Param{param("s", s)}, Impl: Sync(mapString(toUpper))},
		{Name: "LOWER", Doc: "Lower-cases s.", Params: []Param{param("s", s)}, Impl: Sync(mapString(toLower))},
		{Name: "TRIM", Doc: "Removes leading and trailing whitespace.", Params: []Param{param("s", s)}, Impl: Sync(mapString(strings.TrimSpace))},
		{Name: "LTRIM", Doc: "Removes leading whitespace.", Params: []Param{param("s", s)}, Impl: Sync(mapString(func(x string) string {
			return strings.TrimLeftFunc(x, unicode.IsSpace)
		}))},
		{Name: "RTRIM", Doc: "Removes trailing whitespace.", Params: []Param{param("s", s)}, Impl: Sync(mapString(func(x string) string {
			return strings.TrimRightFunc(x, unicode.IsSpace)
		}))},
		{Name: "REPLACE", Doc: "Replaces every literal occurrence of target with repl.",
			Params: []Param{param("s", s), param("target", s), param("repl", s)}, Impl: Sync(fnReplace)},
		{Name: "INSTR", Doc: "1-based position of sub in s, or 0 when absent.",
			Params: []Param{param("s", s), param("sub", s)}, Impl: Sync(fnInstr)},
		{Name: "LPAD", Doc: "Left-pads s with pad (default a space) to exactly total characters.",
			Params: []Param{param("s", s), param("total", value.TypeInt), optional("pad", s)}, Impl: Sync(padFunc("LPAD", true))},
		{Name: "RPAD", Doc: "Right-pads s with pad (default a space) to exactly total characters.",
			Params: []Param{param("s", s), param("total", value.TypeInt), optional("pad", s)}, Impl: Sync(padFunc("RPAD", false))},
		{Name: "SPLIT", Doc: "Splits s on the literal delimiter delim.",
			Params: []Param{param("s", s), param("delim", s)}, Impl: Sync(fnSplit)},
		{Name: "REGEXP_REPLACE", Doc: "Replaces every match of pattern with repl ($1 expands groups).",
			Params: []Param{param("s", s), param("pattern", s), param("repl", s)}, Impl: Sync(fnRegexpReplace)},
		{Name: "REGEXP_SUBSTR", Doc: "First match of pattern in s, or an empty string.",
			Params: []Param{param("s", s), param("pattern", s)}, Impl: Sync(fnRegexpSubstr)},
		{Name: "REVERSE", Doc: "Reverses the characters of s.", Params: []Param{param("s", s)}, Impl: Sync(mapString(reverse))},
		{Name: "INITCAP", Doc: "Capitalizes the first letter of each whitespace-delimited word.",
			Params: []Param{param("s", s)}, Impl: Sync(mapString(initcap))},
		{Name: "CONCAT", Doc: "Concatenates the string forms of all arguments.", Variadic: true,
			Params: []Param{param("value", value.TypeAny)}, Impl: Sync(fnConcat)},
	}
	for _, f := range fns {
		f.Category = "string"
		f.Strict = f.Name != "CONCAT"
	}
	return fns
}

func mapString(fn func(string) string) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		return value.String(fn(string(args[0].(value.String)))), nil
	}
}

func str(v value.Value) string {
	return string(v.(value.String))
}

func fnLength(_ context.Context, args []value.Value) (value.Value, error) {
	return value.Int(len([]rune(str(args[0])))), nil
}

func fnSubstr(_ context.Context, args []value.Value) (value.Value, error) {
	runes := []rune(str(args[0]))
	start := int64(args[1].(value.Int))
	if start < 1 {
		start = 1
	}
	if start > int64(len(runes)) {
		return value.String(""), nil
	}
	from := int(start - 1)
	to := len(runes)
	if len(args) > 2 {
		n := int64(args[2].(value.Int))
		if n <= 0 {
			return value.String(""), nil
		}
		if n < int64(to-from) {
			to = from + int(n)
		}
	}
	return value.String(string(runes[from:to])), nil
}

func fnReplace(_ context.Context, args []value.Value) (value.Value, error) {
	s, target, repl := str(args[0]), str(args[1]), str(args[2])
	if target == "" {
		return value.String(s), nil
	}
	return value.String(strings.ReplaceAll(s, target, repl)), nil
}

func fnInstr(_ context.Context, args []value.Value) (value.Value, error) {
	s, sub := str(args[0]), str(args[1])
	idx := strings.Index(s, sub)
	if idx < 0 {
		return value.Int(0), nil
	}
	return value.Int(len([]rune(s[:idx])) + 1), nil
}

// maxPadLength bounds the result of LPAD and RPAD.
const maxPadLength = 1 << 24

func padFunc(name string, left bool) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		runes := []rune(str(args[0]))
		total := int64(args[1].(value.Int))
		pad := []rune(str(argOr(args, 2, value.String(" "))))
		if total <= 0 {
			return value.String(""), nil
		}
		if int64(len(runes)) >= total {
			return value.String(string(runes[:total])), nil
		}
		if len(pad) == 0 {
			return value.String(string(runes)), nil
		}
		if total > maxPadLength {
			return nil, errs.Newf(errs.KindRuntime, "%s length %d exceeds %d", name, total, maxPadLength)
		}
		need := int(total) - len(runes)
		fill := make([]rune, need)
		for i := range fill {
			fill[i] = pad[i%len(pad)]
		}
		if left {
			return value.String(string(fill) + string(runes)), nil
		}
		return value.String(string(runes) + string(fill)), nil
	}
}

func fnSplit(_ context.Context, args []value.Value) (value.Value, error) {
	parts := strings.Split(str(args[0]), str(args[1]))
	out := value.NewArray()
	for _, p := range parts {
		out.Append(value.String(p))
	}
	return out, nil
}

func compilePattern(fn, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errs.Wrap(errs.KindType, err, fn+": invalid regular expression")
	}
	return re, nil
}

func fnRegexpReplace(_ context.Context, args []value.Value) (value.Value, error) {
	re, err := compilePattern("REGEXP_REPLACE", str(args[1]))
	if err != nil {
		return nil, err
	}
	return value.String(re.ReplaceAllString(str(args[0]), str(args[2]))), nil
}

func fnRegexpSubstr(_ context.Context, args []value.Value) (value.Value, error) {
	re, err := compilePattern("REGEXP_SUBSTR", str(args[1]))
	if err != nil {
		return nil, err
	}
	return value.String(re.FindString(str(args[0]))), nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func initcap(s string) string {
	var sb strings.Builder
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		sb.WriteString(toUpper(string(word[:1])))
		sb.WriteString(toLower(string(word[1:])))
		word = word[:0]
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			flush()
			sb.WriteRune(r)
			continue
		}
		word = append(word, r)
	}
	flush()
	return sb.String()
}

func fnConcat(_ context.Context, args []value.Value) (value.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(value.ToString(a))
	}
	return value.String(sb.String()), nil
}
