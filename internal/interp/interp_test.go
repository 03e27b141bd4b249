package interp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/async"
	"github.com/plesql/plesql/internal/bridge"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/value"
)

func decode(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ast.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v\n%s", err, src)
	}
	return prog
}

func messages(res *Result) []string {
	out := make([]string, 0, len(res.Output))
	for _, line := range res.Output {
		out = append(out, line.Message)
	}
	return out
}

func mustRun(t *testing.T, e *Engine, src string) []string {
	t.Helper()
	res, err := e.Run(context.Background(), decode(t, src))
	if err != nil {
		t.Fatalf("Run: %v\noutput so far: %v", err, messages(res))
	}
	return messages(res)
}

func runErr(t *testing.T, e *Engine, src string, kind errs.Kind) (*Result, *errs.Error) {
	t.Helper()
	res, err := e.Run(context.Background(), decode(t, src))
	if err == nil {
		t.Fatalf("expected %s, run succeeded with output %v", kind, messages(res))
	}
	var se *errs.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *errs.Error, got %T: %v", err, err)
	}
	if se.Kind != kind {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	return res, se
}

func assertOutput(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("output = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("output = %q, want %q", got, want)
		}
	}
}

func TestScopeWriteThroughAndShadowing(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- declare: {name: x, type: INT, init: 1}
- if: true
  then:
    - set: x
      value: 2
    - declare: {name: x, type: INT, init: 10}
    - print: {var: x}
- print: {var: x}
`)
	assertOutput(t, out, "10", "2")
}

func TestDeclareInLoopBodyIsFreshPerIteration(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- for: i
  from: 1
  to: 3
  do:
    - declare: {name: seen, type: INT}
    - print: {concat: [{var: i}, ":", {var: seen}]}
    - set: seen
      value: {var: i}
`)
	assertOutput(t, out, "1:NULL", "2:NULL", "3:NULL")
}

func TestTryCatchFinally(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- try:
    - throw: boom
    - print: unreachable
  catch:
    - print: caught
  finally:
    - print: done
`)
	assertOutput(t, out, "caught", "done")
}

func TestUncaughtThrowRunsFinally(t *testing.T) {
	t.Parallel()
	res, err := runErr(t, New(), `
- try:
    - throw: {concat: ["bad ", 42]}
  finally:
    - print: cleanup
`, errs.KindUser)
	if err.Message != "bad 42" {
		t.Errorf("message = %q", err.Message)
	}
	if err.Line != 3 {
		t.Errorf("error line = %d, want 3", err.Line)
	}
	assertOutput(t, messages(res), "cleanup")
}

func TestFinallySignalReplacesPending(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- function: settle
  returns: INT
  body:
    - try:
        - throw: lost
      finally:
        - return: 7
- print: {call: settle}
`)
	assertOutput(t, out, "7")
}

func TestInOutParameter(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- procedure: add_one
  params: [{name: x, type: INT, mode: INOUT}]
  body:
    - set: x
      value: {add: [{var: x}, 1]}
- declare: {name: n, type: INT, init: 5}
- call: add_one
  args: [{var: n}]
- print: {var: n}
`)
	assertOutput(t, out, "6")
}

func TestOutParameterStartsNullAndWritesBackIntoElements(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- procedure: fill
  params:
    - {name: seen, type: STRING, mode: OUT}
    - {name: result, type: INT, mode: OUT}
  body:
    - set: seen
      value: {concat: ["was ", {var: result}]}
    - set: result
      value: 42
- declare:
    - {name: note, type: STRING, init: old}
    - {name: slots, type: ARRAY OF INT, init: {array: [1, 2, 3]}}
- call: fill
  args: [{var: note}, {index: {var: slots}, at: 2}]
- print: {var: note}
- print: {var: slots}
`)
	assertOutput(t, out, "was NULL", "[1, 42, 3]")
}

func TestFailedCallDoesNotWriteBack(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- procedure: half_done
  params: [{name: x, type: INT, mode: INOUT}]
  body:
    - set: x
      value: 100
    - throw: stop
- declare: {name: n, type: INT, init: 1}
- try:
    - call: half_done
      args: [{var: n}]
  catch:
    - print: {var: n}
`)
	assertOutput(t, out, "1")
}

func TestOutArgumentMustBeAssignable(t *testing.T) {
	t.Parallel()
	runErr(t, New(), `
- procedure: p
  params: [{name: x, type: INT, mode: OUT}]
  body: []
- call: p
  args: [5]
`, errs.KindType)
}

func TestInArgumentsAreCopied(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- procedure: clobber
  params: [{name: d, type: DOCUMENT}]
  body:
    - set: {index: {var: d}, at: k}
      value: changed
- declare: {name: doc, type: DOCUMENT, init: {document: {k: original}}}
- call: clobber
  args: [{var: doc}]
- print: {call: DOCUMENT_GET, args: [{var: doc}, k]}
`)
	assertOutput(t, out, "original")
}

func TestInOutIndexIsEvaluatedOnce(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- function: pick
  returns: INT
  body:
    - print: picked
    - return: 2
- procedure: bump
  params: [{name: x, type: INT, mode: INOUT}]
  body:
    - set: x
      value: {add: [{var: x}, 10]}
- declare: {name: slots, type: ARRAY OF INT, init: {array: [1, 2, 3]}}
- call: bump
  args: [{index: {var: slots}, at: {call: pick}}]
- print: {var: slots}
`)
	assertOutput(t, out, "picked", "[1, 12, 3]")
}

func TestContainerAssignmentCopies(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- declare:
    - {name: d, type: DOCUMENT, init: {document: {k: 1}}}
    - {name: a, type: ARRAY, init: {array: [1]}}
    - {name: e, type: DOCUMENT, init: {var: d}}
    - {name: b, type: ARRAY, init: {var: a}}
    - {name: loose, type: ANY, init: {var: d}}
- set: {index: {var: e}, at: k}
  value: 2
- set: {index: {var: b}, at: 1}
  value: 2
- set: {index: {var: loose}, at: k}
  value: 3
- print: {var: d}
- print: {var: a}
- set: e
  value: {var: d}
- set: {index: {var: e}, at: k}
  value: 4
- print: {var: d}
- print: {var: e}
`)
	assertOutput(t, out, `{"k": 1}`, "[1]", `{"k": 1}`, `{"k": 4}`)
}

func TestRoutineArityAndNames(t *testing.T) {
	t.Parallel()
	e := New()
	mustRun(t, e, `
- function: twice
  params: [{name: n, type: INT}]
  returns: INT
  body:
    - return: {mul: [{var: n}, 2]}
`)
	runErr(t, e, "- print: {call: twice, args: [1, 2]}", errs.KindArity)
	runErr(t, e, "- print: {call: nothing_here}", errs.KindName)
	assertOutput(t, mustRun(t, e, "- print: {call: TWICE, args: [21]}"), "42")
}

func TestFunctionReturns(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- function: as_int
  returns: INT
  body:
    - return: 3.0
- function: nothing
  returns: STRING
  body: []
- procedure: proc
  body:
    - return
- print: {call: TYPEOF, args: [{call: as_int}]}
- print: {call: nothing}
- print: {call: proc}
`)
	assertOutput(t, out, "INT", "NULL", "NULL")

	runErr(t, New(), `
- function: wrong
  returns: INT
  body:
    - return: text
- print: {call: wrong}
`, errs.KindType)
}

func TestRoutineScopeHasNoParent(t *testing.T) {
	t.Parallel()
	runErr(t, New(), `
- declare: {name: outer, type: INT, init: 1}
- function: peek
  returns: INT
  body:
    - return: {var: outer}
- print: {call: peek}
`, errs.KindName)
}

func TestRecursion(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- function: fact
  params: [{name: n, type: INT}]
  returns: INT
  body:
    - if: {le: [{var: n}, 1]}
      then:
        - return: 1
    - return: {mul: [{var: n}, {call: fact, args: [{sub: [{var: n}, 1]}]}]}
- print: {call: fact, args: [10]}
`)
	assertOutput(t, out, "3628800")

	res, err := runErr(t, New(WithMaxCallDepth(10)), `
- function: forever
  params: [{name: n, type: INT}]
  returns: INT
  body:
    - return: {call: forever, args: [{add: [{var: n}, 1]}]}
- print: {call: forever, args: [0]}
`, errs.KindRecursionLimit)
	if len(res.Output) != 0 {
		t.Errorf("unexpected output %v", messages(res))
	}
	if !strings.Contains(err.Message, "10") {
		t.Errorf("message = %q", err.Message)
	}
}

func TestBuiltinErrorsAreCatchable(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- try:
    - print: {call: LENGTH}
  catch:
    - print: none
- try:
    - print: {call: LENGTH, args: [a, b]}
  catch:
    - print: two
- print: {call: SUBSTR, args: [abc, 1, 10]}
- print: {call: DATEDIFF, args: ["2024-05-13", "2024-05-10"]}
`)
	assertOutput(t, out, "none", "two", "abc", "3")

	runErr(t, New(), "- print: {call: LENGTH}", errs.KindArity)
}

func TestArrayDistinctAppendProperty(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- declare: {name: a, type: ARRAY, init: {array: [3, 1, 3, 2, 1]}}
- print: {call: ARRAY_DISTINCT, args: [{call: ARRAY_APPEND, args: [{call: ARRAY_DISTINCT, args: [{var: a}]}, 1]}]}
- print: {call: ARRAY_DISTINCT, args: [{call: ARRAY_APPEND, args: [{call: ARRAY_DISTINCT, args: [{var: a}]}, 9]}]}
- print: {var: a}
`)
	assertOutput(t, out, "[3, 1, 2]", "[3, 1, 2, 9]", "[3, 1, 3, 2, 1]")
}

func TestDocumentRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- declare: {name: d, type: DOCUMENT, init: {document: {a: 1, b: 2}}}
- declare: {name: once, type: DOCUMENT, init: {call: DOCUMENT_REMOVE, args: [{var: d}, a]}}
- declare: {name: twice, type: DOCUMENT, init: {call: DOCUMENT_REMOVE, args: [{var: once}, a]}}
- print: {eq: [{var: once}, {var: twice}]}
- print: {var: d}
`)
	assertOutput(t, out, "true", `{"a": 1, "b": 2}`)
}

func TestIndexing(t *testing.T) {
	t.Parallel()
	e := New()
	out := mustRun(t, e, `
- declare:
    - {name: a, type: ARRAY OF INT, init: {array: [10, 20, 30]}}
    - {name: d, type: DOCUMENT, init: {document: {}}}
    - {name: grid, type: ARRAY, init: {array: [{document: {n: 1}}]}}
- print: {index: {var: a}, at: 1}
- set: {index: {var: a}, at: 3}
  value: 2.0
- print: {var: a}
- set: {index: {var: d}, at: k}
  value: {array: [1]}
- set: {index: {index: {var: d}, at: k}, at: 1}
  value: 5
- print: {var: d}
- set: {index: {index: {var: grid}, at: 1}, at: n}
  value: 2
- print: {var: grid}
`)
	assertOutput(t, out, "10", "[10, 20, 2]", `{"k": [5]}`, `[{"n": 2}]`)

	runErr(t, e, `
- declare: {name: a, type: ARRAY, init: {array: [1]}}
- print: {index: {var: a}, at: 0}
`, errs.KindIndexOutOfBounds)
	runErr(t, e, `
- declare: {name: a, type: ARRAY, init: {array: [1]}}
- set: {index: {var: a}, at: 2}
  value: 2
`, errs.KindIndexOutOfBounds)
	runErr(t, e, `
- declare: {name: d, type: DOCUMENT, init: {document: {k: 1}}}
- print: {index: {var: d}, at: k}
`, errs.KindType)
	runErr(t, e, `
- declare: {name: a, type: ARRAY OF INT, init: {array: [1]}}
- set: {index: {var: a}, at: 1}
  value: text
`, errs.KindType)
}

func TestLoops(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- declare: {name: n, type: INT, init: 0}
- while: {lt: [{var: n}, 10]}
  do:
    - set: n
      value: {add: [{var: n}, 1]}
    - if: {eq: [{var: n}, 3]}
      then:
        - break
- print: {var: n}
- for: i
  from: 5
  to: 1
  do:
    - print: never
- declare: {name: items, type: ARRAY, init: {array: [a, b]}}
- for: item
  in: {var: items}
  do:
    - set: items
      value: {call: ARRAY_APPEND, args: [{var: items}, z]}
    - print: {var: item}
- print: {call: ARRAY_LENGTH, args: [{var: items}]}
- for: i
  from: 1.0
  to: 2
  do:
    - print: {var: i}
`)
	assertOutput(t, out, "3", "a", "b", "4", "1", "2")
}

func TestLoopLimit(t *testing.T) {
	t.Parallel()
	_, err := runErr(t, New(WithMaxLoopIterations(100)), `
- while: true
  do: []
`, errs.KindRuntime)
	if !strings.Contains(err.Message, "100") {
		t.Errorf("message = %q", err.Message)
	}
}

func TestConditionsMustBeBoolean(t *testing.T) {
	t.Parallel()
	runErr(t, New(), `
- if: 1
  then: []
`, errs.KindType)
	runErr(t, New(), `
- while: {null: ~}
  do: []
`, errs.KindType)
	runErr(t, New(), "- print: {and: [true, 1]}", errs.KindType)
}

func TestLogicalShortCircuit(t *testing.T) {
	t.Parallel()
	out := mustRun(t, New(), `
- print: {and: [false, {call: missing_function}]}
- print: {or: [true, {call: missing_function}]}
`)
	assertOutput(t, out, "false", "true")
}

func TestArithmeticErrors(t *testing.T) {
	t.Parallel()
	runErr(t, New(), "- print: {div: [1, 0]}", errs.KindDivisionByZero)
	runErr(t, New(), "- print: {lt: [1, abc]}", errs.KindType)
	out := mustRun(t, New(), `
- print: {div: [7, 2]}
- print: {add: [1, 2, 3]}
- print: {eq: [1, 1.0]}
- print: {ne: [1, "1"]}
`)
	assertOutput(t, out, "3.5", "6", "true", "true")
}

func TestStaticChecks(t *testing.T) {
	t.Parallel()
	e := New()
	res, err := runErr(t, e, `
- print: first
- break
`, errs.KindBreakOutsideLoop)
	if len(res.Output) != 0 {
		t.Errorf("checked program must not run, got %v", messages(res))
	}
	if err.Line != 3 {
		t.Errorf("line = %d, want 3", err.Line)
	}

	runErr(t, e, "- return: 1", errs.KindReturnOutsideFunction)

	_, err = runErr(t, e, `
- for: i
  from: 1
  to: 2
  do:
    - procedure: p
      body:
        - break
`, errs.KindBreakOutsideLoop)
	if err.Line != 8 {
		t.Errorf("line = %d, want 8", err.Line)
	}

	issues := Check(decode(t, `
- while: true
  do:
    - break
- function: f
  returns: INT
  body:
    - return: 1
`))
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestDefineAndDrop(t *testing.T) {
	t.Parallel()
	e := New()
	mustRun(t, e, `
- procedure: hello
  body:
    - print: v1
- procedure: hello
  body:
    - print: v2
- call: HELLO
`)
	if _, ok := e.Registry().Lookup("hello"); !ok {
		t.Fatal("definition not registered")
	}

	assertOutput(t, mustRun(t, e, "- call: hello"), "v2")
	mustRun(t, e, "- delete_procedure: hello")
	runErr(t, e, "- delete_procedure: hello", errs.KindName)
	runErr(t, e, "- call: hello", errs.KindName)
}

func TestDefinitionsAreCheckedOnCreate(t *testing.T) {
	t.Parallel()
	e := New()
	intT := value.Of(value.TypeInt)
	prog := &ast.Program{Body: []ast.Stmt{&ast.Define{Routine: &ast.Routine{
		Kind:   ast.KindProcedure,
		Name:   "dup",
		Params: []ast.Param{{Name: "a", Type: intT}, {Name: "a", Type: intT}},
	}}}}
	if _, err := e.Run(context.Background(), prog); !errs.Is(err, errs.KindName) {
		t.Fatalf("expected NameError, got %v", err)
	}
	if _, ok := e.Registry().Lookup("dup"); ok {
		t.Fatal("invalid definition was registered")
	}
}

type recordingSink struct {
	mu    sync.Mutex
	lines []PrintLine
}

func (s *recordingSink) Emit(_ context.Context, msg string, sev ast.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, PrintLine{Severity: sev, Message: msg})
	return nil
}

func TestPrintSink(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	e := New(WithSink(sink))
	res, err := e.Run(context.Background(), decode(t, `
- print: plain
- print: careful
  severity: warn
- print: {date: "2024-05-13"}
  severity: debug
`))
	if err != nil {
		t.Fatal(err)
	}
	want := []PrintLine{
		{Severity: ast.SeverityInfo, Message: "plain"},
		{Severity: ast.SeverityWarn, Message: "careful"},
		{Severity: ast.SeverityDebug, Message: "2024-05-13"},
	}
	if len(sink.lines) != len(want) || len(res.Output) != len(want) {
		t.Fatalf("sink = %v, output = %v", sink.lines, res.Output)
	}
	for i := range want {
		if sink.lines[i] != want[i] || res.Output[i] != want[i] {
			t.Errorf("line %d: sink %v, output %v, want %v", i, sink.lines[i], res.Output[i], want[i])
		}
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
}

func TestSinkFailureIsRuntimeError(t *testing.T) {
	t.Parallel()
	e := New(WithSink(SinkFunc(func(context.Context, string, ast.Severity) error {
		return errors.New("closed pipe")
	})))
	runErr(t, e, "- print: x", errs.KindRuntime)
}

// eventBridge records bridge calls into a log shared with a print sink.
type eventBridge struct {
	mu         sync.Mutex
	events     []string
	delay      time.Duration
	queryErr   error
	persistErr error
}

func (b *eventBridge) record(ev string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *eventBridge) wait(ctx context.Context) error {
	if b.delay == 0 {
		return nil
	}
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *eventBridge) RunQuery(ctx context.Context, query string) *async.Future[*bridge.QueryResult] {
	return async.Go(ctx, func(ctx context.Context) (*bridge.QueryResult, error) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		if b.queryErr != nil {
			return nil, b.queryErr
		}
		b.record("query " + query)
		res := &bridge.QueryResult{Columns: []string{"n"}}
		for i := 1; i <= 2; i++ {
			row := value.NewDocument()
			row.Set("n", value.Int(int64(i)))
			res.Rows = append(res.Rows, row)
		}
		return res, nil
	})
}

func (b *eventBridge) Persist(ctx context.Context, res *bridge.QueryResult, target string) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		if err := b.wait(ctx); err != nil {
			return struct{}{}, err
		}
		if b.persistErr != nil {
			return struct{}{}, b.persistErr
		}
		b.record(fmt.Sprintf("persist %s %d", target, len(res.Rows)))
		return struct{}{}, nil
	})
}

func TestExecuteOrderingInLoop(t *testing.T) {
	t.Parallel()
	b := &eventBridge{delay: 5 * time.Millisecond}
	sink := SinkFunc(func(_ context.Context, msg string, _ ast.Severity) error {
		b.record("print " + msg)
		return nil
	})
	e := New(WithBridge(b), WithSink(sink))
	mustRun(t, e, `
- for: i
  from: 1
  to: 3
  do:
    - execute: rows
      query: SELECT n FROM t
      persist: totals
    - print: {var: i}
`)
	want := []string{
		"query SELECT n FROM t", "persist totals 2", "print 1",
		"query SELECT n FROM t", "persist totals 2", "print 2",
		"query SELECT n FROM t", "persist totals 2", "print 3",
	}
	if strings.Join(b.events, "|") != strings.Join(want, "|") {
		t.Fatalf("events = %q\nwant %q", b.events, want)
	}
}

func TestExecuteBinding(t *testing.T) {
	t.Parallel()
	e := New(WithBridge(&eventBridge{}))
	out := mustRun(t, e, `
- execute: fresh
  query: q
- print: {call: TYPEOF, args: [{var: fresh}]}
- declare: {name: rows, type: ARRAY}
- if: true
  then:
    - execute: rows
      query: q
- print: {call: ARRAY_LENGTH, args: [{var: rows}]}
- for: r
  in: {var: rows}
  do:
    - print: {call: DOCUMENT_GET, args: [{var: r}, n]}
`)
	assertOutput(t, out, "ARRAY OF DOCUMENT", "2", "1", "2")

	runErr(t, e, `
- declare: {name: rows, type: INT}
- execute: rows
  query: q
`, errs.KindType)
}

func TestExecuteFailures(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	e := New(WithBridge(&eventBridge{persistErr: cause}))
	res, err := e.Run(context.Background(), decode(t, `
- try:
    - execute: rows
      query: q
      persist: out
  catch:
    - print: {call: TYPEOF, args: [{var: rows}]}
`))
	if err == nil || !errs.Is(err, errs.KindName) {
		t.Fatalf("rows must stay unbound after a failed persist, got %v (output %v)", err, messages(res))
	}

	_, se := runErr(t, e, `
- execute: rows
  query: q
  persist: out
`, errs.KindExternalBridge)
	if !errors.Is(se, cause) {
		t.Errorf("bridge error does not wrap the cause: %v", se)
	}

	out := mustRun(t, New(WithBridge(&eventBridge{queryErr: cause})), `
- try:
    - execute: rows
      query: q
  catch:
    - print: handled
`)
	assertOutput(t, out, "handled")

	runErr(t, New(), `
- execute: rows
  query: q
`, errs.KindExternalBridge)
}

func TestCancellationIsNotCatchable(t *testing.T) {
	t.Parallel()
	e := New(WithTimeout(30 * time.Millisecond))
	res, err := runErr(t, e, `
- try:
    - call: SLEEP
      args: [5000]
  catch:
    - print: caught
  finally:
    - print: finally
`, errs.KindCancelled)
	if len(res.Output) != 0 {
		t.Errorf("catch or finally ran after cancellation: %v", messages(res))
	}
	if err.Line != 3 {
		t.Errorf("line = %d, want 3", err.Line)
	}
}

func TestCancelledContextStopsLoop(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	var count int
	e := New(WithSink(SinkFunc(func(context.Context, string, ast.Severity) error {
		count++
		if count == 3 {
			cancel()
		}
		return nil
	})))
	_, err := e.Run(ctx, decode(t, `
- while: true
  do:
    - print: tick
`))
	if !errs.Is(err, errs.KindCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if count != 3 {
		t.Errorf("loop ran %d iterations after cancel", count)
	}
}

func TestEngineCall(t *testing.T) {
	t.Parallel()
	e := New()
	mustRun(t, e, `
- procedure: swap
  params:
    - {name: a, type: INT, mode: INOUT}
    - {name: b, type: INT, mode: INOUT}
    - {name: note, type: STRING, mode: OUT}
  body:
    - declare: {name: tmp, type: INT, init: {var: a}}
    - set: a
      value: {var: b}
    - set: b
      value: {var: tmp}
    - set: note
      value: swapped
    - print: inside
- function: twice
  params: [{name: n, type: NUMBER}]
  returns: NUMBER
  body:
    - return: {mul: [{var: n}, 2]}
`)
	ctx := context.Background()

	res, err := e.Call(ctx, "swap", []value.Value{value.Int(1), value.Int(2), value.Null{}})
	if err != nil {
		t.Fatalf("Call swap: %v", err)
	}
	if got := value.ToString(res.Out); got != `{"a": 2, "b": 1, "note": "swapped"}` {
		t.Errorf("out = %s", got)
	}
	assertOutput(t, messages(res), "inside")

	res, err = e.Call(ctx, "TWICE", []value.Value{value.Float(1.5)})
	if err != nil {
		t.Fatalf("Call twice: %v", err)
	}
	if res.Value != value.Float(3) {
		t.Errorf("twice(1.5) = %#v", res.Value)
	}

	res, err = e.Call(ctx, "upper", []value.Value{value.String("abc")})
	if err != nil {
		t.Fatalf("Call upper: %v", err)
	}
	if res.Value != value.String("ABC") {
		t.Errorf("upper = %#v", res.Value)
	}

	if _, err := e.Call(ctx, "twice", nil); !errs.Is(err, errs.KindArity) {
		t.Errorf("expected ArityError, got %v", err)
	}
	if _, err := e.Call(ctx, "nope", nil); !errs.Is(err, errs.KindName) {
		t.Errorf("expected NameError, got %v", err)
	}
}

func TestConcurrentRuns(t *testing.T) {
	t.Parallel()
	e := New()
	mustRun(t, e, `
- function: square
  params: [{name: n, type: INT}]
  returns: INT
  body:
    - return: {mul: [{var: n}, {var: n}]}
`)

	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf(`
- declare: {name: total, type: INT, init: 0}
- for: k
  from: 1
  to: %d
  do:
    - set: total
      value: {add: [{var: total}, {call: square, args: [{var: k}]}]}
- print: {var: total}
`, i)
			prog, err := ast.Decode([]byte(src))
			if err != nil {
				errCh <- err
				return
			}
			res, err := e.Run(context.Background(), prog)
			if err != nil {
				errCh <- err
				return
			}
			want := fmt.Sprint(i * (i + 1) * (2*i + 1) / 6)
			if got := messages(res); len(got) != 1 || got[0] != want {
				errCh <- fmt.Errorf("run %d printed %v, want %s", i, got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}
