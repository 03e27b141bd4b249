package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plesql/plesql/internal/audit"
	"github.com/plesql/plesql/internal/value"
)

const defineScript = `
- function: add_tax
  params:
    - {name: amount, type: FLOAT}
    - {name: rate, type: FLOAT}
  returns: FLOAT
  body:
    - return: {mul: [{var: amount}, {add: [1, {var: rate}]}]}
- procedure: bump
  params:
    - {name: counter, type: INT, mode: INOUT}
    - {name: by, type: INT}
  body:
    - set: counter
      value: {add: [{var: counter}, {var: by}]}
`

func TestRunPrintsAndPersistsQueryResults(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		`CREATE TABLE people (name TEXT, age INTEGER)`,
		`INSERT INTO people VALUES ('ann', 41), ('bob', 29)`,
	)
	script := env.writeScript(t, "people.yaml", `
- execute: people
  query: SELECT name, age FROM people ORDER BY name
  persist: People Snapshot
- for: p
  in: {var: people}
  do:
    - print: {concat: [{call: DOCUMENT_GET, args: [{var: p}, name]}, " is ", {call: DOCUMENT_GET, args: [{var: p}, age]}]}
`)

	out, err := env.run(t, "run", script)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "ann is 41\nbob is 29\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = env.run(t, "--json", "results", "list")
	if err != nil {
		t.Fatalf("results list: %v", err)
	}
	var listed struct {
		Targets []targetView `json:"targets"`
	}
	decodeEnvelope(t, out, &listed)
	if len(listed.Targets) != 1 || listed.Targets[0].Target != "people-snapshot" || listed.Targets[0].Rows != 2 {
		t.Fatalf("unexpected targets: %+v", listed.Targets)
	}

	out, err = env.run(t, "--json", "results", "show", "People Snapshot")
	if err != nil {
		t.Fatalf("results show: %v", err)
	}
	var shown struct {
		Results []persistedView `json:"results"`
	}
	decodeEnvelope(t, out, &shown)
	if len(shown.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(shown.Results))
	}
	if got := string(shown.Results[0].Rows); got != `[{"name":"ann","age":41},{"name":"bob","age":29}]` {
		t.Fatalf("unexpected rows %s", got)
	}

	if _, err := env.run(t, "results", "clear", "people-snapshot"); err != nil {
		t.Fatalf("results clear: %v", err)
	}
	if _, err := env.run(t, "--json", "results", "show", "people-snapshot"); err == nil {
		t.Fatal("expected an error after clearing the target")
	}
}

func TestRunJSONReportsScriptFailure(t *testing.T) {
	env := newTestEnv(t)
	script := env.writeScript(t, "fail.yaml", `
- print: before
- throw: nope
- print: after
`)

	out, err := env.run(t, "--json", "run", script)
	if err == nil {
		t.Fatal("expected a non-nil error for a failing script")
	}
	var data struct {
		Runs []struct {
			OK     bool `json:"ok"`
			Output []struct {
				Message string `json:"message"`
			} `json:"output"`
			Error struct {
				Code    string               `json:"code"`
				Details LanguageErrorDetails `json:"details"`
			} `json:"error"`
		} `json:"runs"`
	}
	resp := decodeEnvelope(t, out, &data)
	if resp.OK || resp.Error == nil || resp.Error.Code != ErrScriptFailed {
		t.Fatalf("unexpected envelope: %s", out)
	}
	run := data.Runs[0]
	if run.OK || run.Error.Details.Kind != "UserError" || run.Error.Details.Line != 3 {
		t.Fatalf("unexpected run report: %+v", run)
	}
	if len(run.Output) != 1 || run.Output[0].Message != "before" {
		t.Fatalf("expected output before the failure, got %+v", run.Output)
	}
}

func TestRunParallelScripts(t *testing.T) {
	env := newTestEnv(t)
	var scripts []string
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml"} {
		scripts = append(scripts, env.writeScript(t, name, `
- declare: [{name: total, type: INT, init: 0}]
- for: i
  from: 1
  to: 100
  do:
    - set: total
      value: {add: [{var: total}, {var: i}]}
- print: {var: total}
`))
	}

	out, err := env.run(t, append([]string{"--json", "run", "--parallel", "3"}, scripts...)...)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var data struct {
		Runs []runReport `json:"runs"`
	}
	decodeEnvelope(t, out, &data)
	if len(data.Runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(data.Runs))
	}
	seen := map[string]bool{}
	for i, r := range data.Runs {
		if r.Script != scripts[i] || !r.OK || len(r.Output) != 1 || r.Output[0].Message != "5050" {
			t.Fatalf("unexpected report %d: %+v", i, r)
		}
		if seen[r.RunID] {
			t.Fatalf("run id %s reused", r.RunID)
		}
		seen[r.RunID] = true
	}
}

func TestRunRejectsRepeatedStdin(t *testing.T) {
	env := newTestEnv(t)
	script := env.writeScript(t, "one.yaml", "- print: one\n")
	out, err := env.run(t, "--json", "run", "--parallel", "2", "-", script, "-")
	if err == nil {
		t.Fatal("expected an error")
	}
	resp := decodeEnvelope(t, out, nil)
	if resp.Error == nil || resp.Error.Code != ErrInvalidInput {
		t.Fatalf("unexpected envelope: %s", out)
	}
	if got := countStdin([]string{"-", "a.yaml", "-"}); got != 2 {
		t.Fatalf("countStdin = %d", got)
	}
}

func TestRoutineLifecycle(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "run", env.writeScript(t, "define.yaml", defineScript)); err != nil {
		t.Fatalf("define: %v", err)
	}

	out, err := env.run(t, "--json", "call", "ADD_TAX", "100", "0.5")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var called struct {
		Value float64        `json:"value"`
		Out   map[string]any `json:"out"`
	}
	decodeEnvelope(t, out, &called)
	if called.Value != 150 {
		t.Fatalf("add_tax = %v, want 150", called.Value)
	}

	out, err = env.run(t, "call", "bump", "5", "2")
	if err != nil {
		t.Fatalf("call bump: %v", err)
	}
	if !strings.Contains(out, "counter =") || !strings.Contains(out, "7") {
		t.Fatalf("expected INOUT value in output, got %q", out)
	}

	out, err = env.run(t, "--json", "proc", "list")
	if err != nil {
		t.Fatalf("proc list: %v", err)
	}
	var listed struct {
		Routines []procView `json:"routines"`
	}
	decodeEnvelope(t, out, &listed)
	if len(listed.Routines) != 2 || listed.Routines[0].Signature != "add_tax(amount FLOAT, rate FLOAT) RETURNS FLOAT" {
		t.Fatalf("unexpected routines: %+v", listed.Routines)
	}

	exported := filepath.Join(env.dir, "export", "routines.yaml")
	if err := os.MkdirAll(filepath.Dir(exported), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "proc", "export", "-o", exported); err != nil {
		t.Fatalf("proc export: %v", err)
	}
	if _, err := env.run(t, "proc", "delete", "add_tax", "BUMP"); err != nil {
		t.Fatalf("proc delete: %v", err)
	}

	out, err = env.run(t, "--json", "proc", "delete", "add_tax")
	if err == nil {
		t.Fatal("expected deleting a missing routine to fail")
	}
	if resp := decodeEnvelope(t, out, nil); resp.Error == nil || resp.Error.Code != ErrDefinitionNotFound {
		t.Fatalf("unexpected envelope: %s", out)
	}

	if _, err := env.run(t, "run", exported); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	out, err = env.run(t, "call", "add_tax", "10", "0.5")
	if err != nil {
		t.Fatalf("call after re-import: %v", err)
	}
	if strings.TrimSpace(out) != "15" {
		t.Fatalf("add_tax = %q, want 15", out)
	}
}

func TestCallUnknownRoutine(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "--json", "call", "nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	resp := decodeEnvelope(t, out, nil)
	if resp.Error == nil || resp.Error.Code != ErrScriptFailed {
		t.Fatalf("unexpected envelope: %s", out)
	}
}

func TestCheckReportsStructuralErrors(t *testing.T) {
	env := newTestEnv(t)
	good := env.writeScript(t, "good.yaml", "- print: hi\n")
	bad := env.writeScript(t, "bad.yaml", "- print: hi\n- break\n- return: 1\n")
	broken := env.writeScript(t, "broken.yaml", "- frobnicate: 1\n")

	if _, err := env.run(t, "check", good); err != nil {
		t.Fatalf("check good: %v", err)
	}

	out, err := env.run(t, "--json", "check", good, bad, broken)
	if err == nil {
		t.Fatal("expected check to fail")
	}
	var data struct {
		Issues []checkIssue `json:"issues"`
	}
	decodeEnvelope(t, out, &data)
	if len(data.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", data.Issues)
	}
	if data.Issues[0].Kind != "BreakOutsideLoop" || data.Issues[0].Line != 2 {
		t.Errorf("unexpected first issue: %+v", data.Issues[0])
	}
	if data.Issues[1].Kind != "ReturnOutsideFunction" {
		t.Errorf("unexpected second issue: %+v", data.Issues[1])
	}
	if data.Issues[2].Kind != "SyntaxError" || data.Issues[2].Script != broken {
		t.Errorf("unexpected third issue: %+v", data.Issues[2])
	}
}

func TestAuditRecordsRunsAndDefinitions(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "run", env.writeScript(t, "define.yaml", defineScript)); err != nil {
		t.Fatalf("define: %v", err)
	}

	out, err := env.run(t, "--json", "audit")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	var data struct {
		Entries []audit.Entry `json:"entries"`
	}
	decodeEnvelope(t, out, &data)
	var ops []string
	for _, e := range data.Entries {
		ops = append(ops, e.Operation+":"+e.ID)
	}
	got := strings.Join(ops, ",")
	if !strings.HasPrefix(got, "create:add_tax,create:bump,run:") {
		t.Fatalf("unexpected audit entries: %s", got)
	}

	out, err = env.run(t, "--json", "audit", "--op", "run")
	if err != nil {
		t.Fatalf("audit --op: %v", err)
	}
	data.Entries = nil
	decodeEnvelope(t, out, &data)
	if len(data.Entries) != 1 || data.Entries[0].RunID == "" || data.Entries[0].Outcome != "ok" {
		t.Fatalf("unexpected run entries: %+v", data.Entries)
	}
}

func TestBuiltinsCommand(t *testing.T) {
	out, err := executeCLI(t, "--json", "builtins", "substr")
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	var v builtinView
	decodeEnvelope(t, out, &v)
	if v.Name != "SUBSTR" || !strings.HasPrefix(v.Signature, "SUBSTR(") || v.Category != "string" {
		t.Fatalf("unexpected builtin: %+v", v)
	}

	out, err = executeCLI(t, "--json", "builtins", "--category", "date")
	if err != nil {
		t.Fatalf("builtins --category: %v", err)
	}
	var listed struct {
		Builtins []builtinView `json:"builtins"`
	}
	decodeEnvelope(t, out, &listed)
	if len(listed.Builtins) == 0 {
		t.Fatal("expected date built-ins")
	}
	for _, b := range listed.Builtins {
		if b.Category != "date" {
			t.Fatalf("unexpected category in %+v", b)
		}
	}
}

func TestDocsTopicsAndSearch(t *testing.T) {
	out, err := executeCLI(t, "--json", "docs")
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	var listed struct {
		Topics []docsTopic `json:"topics"`
	}
	decodeEnvelope(t, out, &listed)
	if len(listed.Topics) == 0 || listed.Topics[0].Section != "guide" {
		t.Fatalf("expected guide topics first, got %+v", listed.Topics)
	}
	if _, ok := findDocsTopic(listed.Topics, "reference/tree-format"); !ok {
		t.Fatalf("tree-format topic missing")
	}

	out, err = executeCLI(t, "docs", "tree-format")
	if err != nil {
		t.Fatalf("docs tree-format: %v", err)
	}
	if !strings.HasPrefix(out, "# Tree format") {
		t.Fatalf("expected raw markdown when not a terminal, got %q", out[:min(len(out), 40)])
	}

	out, err = executeCLI(t, "--json", "docs", "search", "PERSIST")
	if err != nil {
		t.Fatalf("docs search: %v", err)
	}
	var found struct {
		Matches []docsSearchMatch `json:"matches"`
	}
	decodeEnvelope(t, out, &found)
	if len(found.Matches) == 0 {
		t.Fatal("expected matches for persist")
	}

	if _, err := executeCLI(t, "docs", "no-such-topic"); err == nil {
		t.Fatal("expected unknown topic error")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	out, err := executeCLI(t, "--json", "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	var created struct {
		Created bool `json:"created"`
	}
	decodeEnvelope(t, out, &created)
	if !created.Created {
		t.Fatal("expected config to be created")
	}

	out, err = executeCLI(t, "--json", "--config", path, "--db", filepath.Join(dir, "x.db"), "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var shown struct {
		Database string `json:"database"`
		Audit    string `json:"audit"`
	}
	decodeEnvelope(t, out, &shown)
	if shown.Database != filepath.Join(dir, "x.db") || shown.Audit != filepath.Join(dir, "audit.log") {
		t.Fatalf("unexpected paths: %+v", shown)
	}
}

func TestInvalidConfigIsReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[output]\ncolor = \"sometimes\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCLI(t, "--json", "--config", path, "proc", "list")
	var reported *exitError
	if !errors.As(err, &reported) {
		t.Fatalf("expected an already-reported error, got %v", err)
	}
	if resp := decodeEnvelope(t, out, nil); resp.Error == nil || resp.Error.Code != ErrConfigInvalid {
		t.Fatalf("unexpected envelope: %s", out)
	}
}

func TestParseCallArgs(t *testing.T) {
	t.Parallel()

	args, err := parseCallArgs([]string{"42", "1.5", "true", "null", "hello", "[1, 2]", "{a: x}"})
	if err != nil {
		t.Fatalf("parseCallArgs: %v", err)
	}
	want := []string{"INT", "FLOAT", "BOOLEAN", "NULL", "STRING", "ARRAY OF INT", "DOCUMENT"}
	for i, a := range args {
		if got := value.TypeOf(a).String(); got != want[i] {
			t.Errorf("arg %d: type %s, want %s", i, got, want[i])
		}
	}

	if _, err := parseCallArgs([]string{"{unclosed"}); err == nil {
		t.Error("expected a YAML error")
	}
}
