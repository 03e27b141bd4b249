package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/plesql/plesql/internal/testutil"
)

var cliMu sync.Mutex

type testEnv struct {
	dir        string
	configPath string
	dbPath     string
}

// newTestEnv writes a config pointing at a fresh database in a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		dbPath:     filepath.Join(dir, "data", "plesql.db"),
	}
	content := fmt.Sprintf("database = %q\n\n[output]\ncolor = \"never\"\n", env.dbPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// seed runs SQL directly against the environment's database.
func (e *testEnv) seed(t *testing.T, statements ...string) {
	t.Helper()
	testutil.Seed(t, e.dbPath, statements...)
}

func (e *testEnv) writeScript(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

// run executes the CLI with the environment's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cliMu.Lock()
	defer cliMu.Unlock()

	resetFlags()
	var buf bytes.Buffer
	prevStdout := stdout
	stdout = &buf
	defer func() { stdout = prevStdout }()

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags() {
	resetCommandFlags(rootCmd)
	jsonOutput = false
	configPath = ""
	databaseFlag = ""
	logLevelFlag = ""
	cfg = nil
	runParallel = 1
	runTimeout = 0
	procExportOutput = ""
	resultsShowAll = false
	auditSince = 0
	auditOp = ""
	auditName = ""
	auditLimit = 50
	builtinsCategory = ""
	docsSearchLimit = 20
}

// resetCommandFlags restores every flag in the tree to its default so a
// previous test's flags do not leak into the next invocation.
func resetCommandFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.LocalFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCommandFlags(sub)
	}
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *ErrorInfo      `json:"error"`
	Meta  *Meta           `json:"meta"`
}

func decodeEnvelope(t *testing.T, out string, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("expected JSON output, got %v:\n%s", err, out)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v:\n%s", err, env.Data)
		}
	}
	return env
}
