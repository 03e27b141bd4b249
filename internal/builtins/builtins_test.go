package builtins

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

var fixedNow = time.Date(2024, 5, 13, 15, 4, 5, 0, time.UTC)

func newTestRegistry() *Registry {
	return Default(WithClock(func() time.Time { return fixedNow }))
}

func call(t *testing.T, r *Registry, name string, args ...value.Value) value.Value {
	t.Helper()
	v, err := r.Invoke(context.Background(), name, args).Await(context.Background())
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func callErr(t *testing.T, r *Registry, name string, args ...value.Value) error {
	t.Helper()
	_, err := r.Invoke(context.Background(), name, args).Await(context.Background())
	if err == nil {
		t.Fatalf("%s: expected an error", name)
	}
	return err
}

func s(v string) value.Value { return value.String(v) }
func i(v int64) value.Value  { return value.Int(v) }

func TestStringFunctions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	tests := []struct {
		name string
		args []value.Value
		want value.Value
	}{
		{"LENGTH", []value.Value{s("héllo")}, i(5)},
		{"SUBSTR", []value.Value{s("abc"), i(1), i(10)}, s("abc")},
		{"SUBSTR", []value.Value{s("abcdef"), i(2), i(3)}, s("bcd")},
		{"SUBSTR", []value.Value{s("abcdef"), i(4)}, s("def")},
		{"SUBSTR", []value.Value{s("abc"), i(0), i(2)}, s("ab")},
		{"SUBSTR", []value.Value{s("abc"), i(9)}, s("")},
		{"SUBSTR", []value.Value{s("abc"), i(2), i(math.MaxInt64)}, s("bc")},
		{"upper", []value.Value{s("straße")}, s("STRASSE")},
		{"LOWER", []value.Value{s("ABC")}, s("abc")},
		{"TRIM", []value.Value{s("  x  ")}, s("x")},
		{"LTRIM", []value.Value{s("  x  ")}, s("x  ")},
		{"RTRIM", []value.Value{s("  x  ")}, s("  x")},
		{"REPLACE", []value.Value{s("a-b-c"), s("-"), s("+")}, s("a+b+c")},
		{"INSTR", []value.Value{s("hello"), s("ll")}, i(3)},
		{"INSTR", []value.Value{s("hello"), s("z")}, i(0)},
		{"LPAD", []value.Value{s("7"), i(3), s("0")}, s("007")},
		{"LPAD", []value.Value{s("ab"), i(7), s("xy")}, s("xyxyxab")},
		{"RPAD", []value.Value{s("ab"), i(4)}, s("ab  ")},
		{"RPAD", []value.Value{s("abcdef"), i(3), s("*")}, s("abc")},
		{"REGEXP_REPLACE", []value.Value{s("a1b22"), s(`\d+`), s("#")}, s("a#b#")},
		{"REGEXP_SUBSTR", []value.Value{s("order-123-x"), s(`\d+`)}, s("123")},
		{"REGEXP_SUBSTR", []value.Value{s("none"), s(`\d+`)}, s("")},
		{"REVERSE", []value.Value{s("abc")}, s("cba")},
		{"INITCAP", []value.Value{s("hello WORLD  foo-bar")}, s("Hello World  Foo-bar")},
		{"CONCAT", []value.Value{s("n="), value.Float(6), value.Null{}}, s("n=6NULL")},
		{"LENGTH", []value.Value{value.Null{}}, value.Null{}},
	}
	for _, tt := range tests {
		got := call(t, r, tt.name, tt.args...)
		if !value.Equal(got, tt.want) {
			t.Errorf("%s(%v) = %s, want %s", tt.name, tt.args, value.ToString(got), value.ToString(tt.want))
		}
	}

	parts := call(t, r, "SPLIT", s("a.b..c"), s(".")).(*value.Array)
	if parts.Len() != 4 || parts.At(2) != s("") {
		t.Fatalf("SPLIT = %s", value.ToString(parts))
	}
}

func TestArityErrorsAreReturned(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	for _, args := range [][]value.Value{nil, {s("a"), s("b")}} {
		err := callErr(t, r, "LENGTH", args...)
		if !errs.Is(err, errs.KindArity) {
			t.Fatalf("LENGTH with %d args: expected ArityError, got %v", len(args), err)
		}
	}
	if err := callErr(t, r, "SUBSTR", s("a")); err.Error() != "ArityError: SUBSTR expects 2 to 3 arguments, got 1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err := callErr(t, r, "CONCAT"); !errs.Is(err, errs.KindArity) {
		t.Fatalf("CONCAT needs one argument, got %v", err)
	}
}

func TestTypeErrorsAreReturned(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	cases := []struct {
		name string
		args []value.Value
	}{
		{"LENGTH", []value.Value{i(3)}},
		{"SUBSTR", []value.Value{s("abc"), s("x")}},
		{"ARRAY_LENGTH", []value.Value{s("abc")}},
		{"ARRAY_LENGTH", []value.Value{value.Null{}}},
		{"DOCUMENT_KEYS", []value.Value{value.NewArray()}},
		{"SQRT", []value.Value{i(-1)}},
		{"LOG", []value.Value{i(0)}},
		{"REGEXP_SUBSTR", []value.Value{s("x"), s("(")}},
		{"DATEDIFF", []value.Value{s("yesterday"), s("2024-05-10")}},
	}
	for _, c := range cases {
		if err := callErr(t, r, c.name, c.args...); !errs.Is(err, errs.KindType) {
			t.Errorf("%s: expected TypeError, got %v", c.name, err)
		}
	}

	if err := callErr(t, r, "NOPE"); !errs.Is(err, errs.KindName) {
		t.Fatalf("unknown function should be a NameError, got %v", err)
	}
}

func TestPadLengthIsBounded(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	for _, name := range []string{"LPAD", "RPAD"} {
		for _, total := range []int64{math.MaxInt64, 10_000_000_000, maxPadLength + 1} {
			err := callErr(t, r, name, s("a"), i(total), s("x"))
			if !errs.Is(err, errs.KindRuntime) {
				t.Errorf("%s(a, %d): expected RuntimeError, got %v", name, total, err)
			}
		}
	}
	if got := call(t, r, "RPAD", s("ab"), i(math.MaxInt64), s("")); got != s("ab") {
		t.Fatalf("an empty pad leaves s unchanged, got %s", value.ToString(got))
	}
}

func TestPanickingFunctionFails(t *testing.T) {
	t.Parallel()
	r := New()
	err := r.RegisterSync("explode", nil, func(context.Context, []value.Value) (value.Value, error) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("RegisterSync: %v", err)
	}
	err = callErr(t, r, "EXPLODE")
	if !errs.Is(err, errs.KindRuntime) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
}

func TestNumberFunctions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	tests := []struct {
		name string
		args []value.Value
		want value.Value
	}{
		{"ABS", []value.Value{i(-3)}, value.Float(3)},
		{"CEIL", []value.Value{value.Float(1.2)}, value.Float(2)},
		{"FLOOR", []value.Value{value.Float(-1.2)}, value.Float(-2)},
		{"ROUND", []value.Value{value.Float(2.5)}, value.Float(3)},
		{"ROUND", []value.Value{value.Float(-2.5)}, value.Float(-3)},
		{"ROUND", []value.Value{value.Float(3.14159), i(2)}, value.Float(3.14)},
		{"TRUNC", []value.Value{value.Float(-3.99)}, value.Float(-3)},
		{"TRUNC", []value.Value{value.Float(3.14159), i(3)}, value.Float(3.141)},
		{"POWER", []value.Value{i(2), i(10)}, value.Float(1024)},
		{"SQRT", []value.Value{i(9)}, value.Float(3)},
		{"LOG", []value.Value{i(8), i(2)}, value.Float(3)},
		{"EXP", []value.Value{i(0)}, value.Float(1)},
		{"MOD", []value.Value{i(7), i(3)}, i(1)},
		{"MOD", []value.Value{value.Float(7.5), i(2)}, value.Float(1.5)},
		{"SIGN", []value.Value{value.Float(-0.1)}, i(-1)},
		{"SIGN", []value.Value{i(0)}, i(0)},
	}
	for _, tt := range tests {
		got := call(t, r, tt.name, tt.args...)
		if got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.name, got, tt.want)
		}
	}

	if err := callErr(t, r, "MOD", i(1), i(0)); !errs.Is(err, errs.KindDivisionByZero) {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestDateFunctions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	if got := call(t, r, "DATEDIFF", s("2024-05-13"), s("2024-05-10")); got != i(3) {
		t.Fatalf("DATEDIFF = %s", value.ToString(got))
	}
	if got := value.ToString(call(t, r, "CURRENT_DATE")); got != "2024-05-13" {
		t.Fatalf("CURRENT_DATE = %s", got)
	}
	if got := value.ToString(call(t, r, "CURRENT_TIMESTAMP")); got != "2024-05-13T15:04:05Z" {
		t.Fatalf("CURRENT_TIMESTAMP = %s", got)
	}
	if got := value.ToString(call(t, r, "DATE_ADD", s("2024-02-28"), i(2))); got != "2024-03-01" {
		t.Fatalf("DATE_ADD = %s", got)
	}
	if got := value.ToString(call(t, r, "DATE_SUB", s("2024-03-01"), i(1))); got != "2024-02-29" {
		t.Fatalf("DATE_SUB = %s", got)
	}
	d := s("2023-11-07")
	if call(t, r, "EXTRACT_YEAR", d) != i(2023) || call(t, r, "EXTRACT_MONTH", d) != i(11) || call(t, r, "EXTRACT_DAY", d) != i(7) {
		t.Fatalf("EXTRACT_* mismatch")
	}
}

func TestArrayFunctions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	a := value.NewArray(i(3), i(1), i(3), i(2), i(1))
	distinct := call(t, r, "ARRAY_DISTINCT", a)
	if value.ToString(distinct) != "[3, 1, 2]" {
		t.Fatalf("ARRAY_DISTINCT = %s", value.ToString(distinct))
	}
	if a.Len() != 5 {
		t.Fatalf("argument was mutated")
	}

	// Appending to a distinct array and deduplicating again keeps first-seen order.
	for _, x := range []value.Value{i(1), i(4), value.Float(2)} {
		round := call(t, r, "ARRAY_DISTINCT", call(t, r, "ARRAY_APPEND", call(t, r, "ARRAY_DISTINCT", a), x))
		arr := round.(*value.Array)
		for j := 0; j < 3; j++ {
			if !value.Equal(arr.At(j), distinct.(*value.Array).At(j)) {
				t.Fatalf("order changed: %s", value.ToString(round))
			}
		}
	}

	appended := call(t, r, "ARRAY_APPEND", a, i(9)).(*value.Array)
	if appended.Len() != 6 || a.Len() != 5 {
		t.Fatalf("ARRAY_APPEND must copy")
	}
	if got := value.ToString(call(t, r, "ARRAY_PREPEND", value.NewArray(i(1)), s("x"))); got != `["x", 1]` {
		t.Fatalf("ARRAY_PREPEND = %s", got)
	}
	if got := value.ToString(call(t, r, "ARRAY_REMOVE", a, value.Float(3))); got != "[1, 2, 1]" {
		t.Fatalf("ARRAY_REMOVE = %s", got)
	}
	if call(t, r, "ARRAY_CONTAINS", a, i(2)) != value.Bool(true) || call(t, r, "ARRAY_CONTAINS", a, i(7)) != value.Bool(false) {
		t.Fatalf("ARRAY_CONTAINS mismatch")
	}
	if call(t, r, "ARRAY_LENGTH", a) != i(5) {
		t.Fatalf("ARRAY_LENGTH mismatch")
	}
}

func TestDocumentFunctions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	d := value.NewDocument()
	d.Set("b", i(1))
	d.Set("a", i(2))
	other := value.NewDocument()
	other.Set("a", i(20))
	other.Set("c", i(3))

	if got := value.ToString(call(t, r, "DOCUMENT_KEYS", d)); got != `["b", "a"]` {
		t.Fatalf("DOCUMENT_KEYS = %s", got)
	}
	if got := value.ToString(call(t, r, "DOCUMENT_VALUES", d)); got != "[1, 2]" {
		t.Fatalf("DOCUMENT_VALUES = %s", got)
	}
	if got := call(t, r, "DOCUMENT_GET", d, s("zz")); !value.IsNull(got) {
		t.Fatalf("DOCUMENT_GET missing = %s", value.ToString(got))
	}
	merged := call(t, r, "DOCUMENT_MERGE", d, other)
	if got := value.ToString(merged); got != `{"b": 1, "a": 20, "c": 3}` {
		t.Fatalf("DOCUMENT_MERGE = %s", got)
	}
	if v, _ := d.Get("a"); v != i(2) {
		t.Fatalf("DOCUMENT_MERGE mutated its argument")
	}

	once := call(t, r, "DOCUMENT_REMOVE", d, s("a"))
	twice := call(t, r, "DOCUMENT_REMOVE", once, s("a"))
	if !value.Equal(once, twice) {
		t.Fatalf("DOCUMENT_REMOVE is not idempotent")
	}
	if d.Len() != 2 {
		t.Fatalf("DOCUMENT_REMOVE mutated its argument")
	}
	if call(t, r, "DOCUMENT_CONTAINS", once, s("a")) != value.Bool(false) {
		t.Fatalf("key should be gone")
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()

	start := time.Now()
	if got := call(t, r, "SLEEP", i(20)); !value.IsNull(got) {
		t.Fatalf("SLEEP = %s", value.ToString(got))
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("SLEEP returned too early")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Invoke(ctx, "SLEEP", []value.Value{i(10_000)}).Await(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the sleep to be cut short, got %v", err)
	}
}

func TestRegisterAndSignature(t *testing.T) {
	r := New()
	err := r.Register(&Function{
		Name:   "bad",
		Params: []Param{optional("a", value.TypeInt), param("b", value.TypeInt)},
		Impl:   Sync(fnTypeOf),
	})
	if err == nil {
		t.Fatalf("required after optional should be rejected")
	}

	err = r.RegisterSync("double", []Param{param("n", value.TypeInt)}, func(_ context.Context, args []value.Value) (value.Value, error) {
		return args[0].(value.Int) * 2, nil
	})
	if err != nil {
		t.Fatalf("RegisterSync: %v", err)
	}
	if got := call(t, r, "Double", value.Float(4)); got != i(8) {
		t.Fatalf("DOUBLE = %#v", got)
	}

	f, ok := newTestRegistry().Lookup("substr")
	if !ok {
		t.Fatalf("SUBSTR not registered")
	}
	if got := f.Signature(); got != "SUBSTR(s STRING, start INT[, len INT])" {
		t.Fatalf("Signature = %q", got)
	}
	if got := call(t, newTestRegistry(), "TYPEOF", value.NewArray(s("a"))); got != s("ARRAY OF STRING") {
		t.Fatalf("TYPEOF = %s", value.ToString(got))
	}
}
