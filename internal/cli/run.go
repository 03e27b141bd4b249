package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/interp"
	"github.com/plesql/plesql/internal/ui"
)

var (
	runParallel int
	runTimeout  time.Duration
)

type runReport struct {
	Script     string             `json:"script"`
	RunID      string             `json:"run_id,omitempty"`
	OK         bool               `json:"ok"`
	Output     []interp.PrintLine `json:"output"`
	DurationMs int64              `json:"duration_ms"`
	Error      *ErrorInfo         `json:"error,omitempty"`
	err        error
}

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>...",
	Short: "Run one or more scripts",
	Long: `Run PL|ESQL scripts. Each script is a YAML syntax tree; use - to read
one from stdin. Scripts share the database, so procedures created by one
script are visible to scripts started after it completes.

With --parallel, up to N scripts run concurrently on the same engine.

Examples:
  plesql run nightly.yaml
  plesql run --parallel 4 reports/*.yaml
  plesql run --json check.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runParallel < 1 {
			return handleErrorMsg(ErrInvalidInput, "--parallel must be >= 1", "")
		}
		if countStdin(args) > 1 {
			return handleErrorMsg(ErrInvalidInput, "stdin (-) can be given only once", "pass each script from stdin in a separate run")
		}

		ctx := cmd.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		a, err := openApp(ctx, consoleSink(stdout))
		if err != nil {
			return err
		}
		defer a.Close()

		reports := make([]*runReport, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runParallel)
		for i, script := range args {
			i, script := i, script
			g.Go(func() error {
				reports[i] = runScript(gctx, a, script)
				return nil
			})
		}
		_ = g.Wait()

		return reportRuns(reports)
	},
}

func runScript(ctx context.Context, a *app, script string) *runReport {
	rep := &runReport{Script: script, Output: []interp.PrintLine{}}

	prog, err := loadProgram(script)
	if err != nil {
		rep.fail(err)
		return rep
	}

	res, err := a.engine.Run(ctx, prog)
	rep.RunID = res.RunID
	rep.DurationMs = res.Duration.Milliseconds()
	if res.Output != nil {
		rep.Output = res.Output
	}
	if err != nil {
		rep.fail(err)
	} else {
		rep.OK = true
	}

	if auditErr := a.audit.LogRun("run", script, res.RunID, res.Duration, err); auditErr != nil {
		logger.Warn("audit write failed", "error", auditErr)
	}
	return rep
}

func (r *runReport) fail(err error) {
	r.err = err
	r.Error = &ErrorInfo{
		Code:    codeFor(err, ErrFileReadError),
		Message: err.Error(),
		Details: errorDetails(err),
	}
}

func countStdin(args []string) int {
	n := 0
	for _, a := range args {
		if a == "-" {
			n++
		}
	}
	return n
}

// loadProgram reads and decodes a script file, or stdin for "-".
func loadProgram(path string) (*ast.Program, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ast.Decode(data)
}

func reportRuns(reports []*runReport) error {
	var failed []*runReport
	for _, r := range reports {
		if !r.OK {
			failed = append(failed, r)
		}
	}

	if isJSONOutput() {
		data := map[string]any{"runs": reports}
		if len(failed) == 0 {
			outputSuccess(data, &Meta{Count: len(reports)})
			return nil
		}
		outputJSON(Response{
			OK:    false,
			Data:  data,
			Error: &ErrorInfo{Code: ErrScriptFailed, Message: fmt.Sprintf("%d of %d scripts failed", len(failed), len(reports))},
			Meta:  &Meta{Count: len(reports)},
		})
		return &exitError{err: failed[0].err}
	}

	for _, r := range reports {
		if r.OK {
			fmt.Fprintln(os.Stderr, ui.Success(ui.Name(r.Script)+" "+ui.Elapsed(time.Duration(r.DurationMs)*time.Millisecond)))
			continue
		}
		fmt.Fprintln(os.Stderr, ui.Error(ui.Name(r.Script)))
		fmt.Fprintln(os.Stderr, "  "+describeError(r.err))
	}
	if len(failed) > 0 {
		return &exitError{err: failed[0].err}
	}
	return nil
}

// describeError renders script errors with kind and position and anything
// else as plain text.
func describeError(err error) string {
	if errs.KindOf(err) != "" {
		return ui.LanguageError(errs.From(err))
	}
	return ui.Error(err.Error())
}

func init() {
	runCmd.Flags().IntVarP(&runParallel, "parallel", "p", 1, "Maximum number of scripts to run concurrently")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Cancel all scripts after this long (0 = engine.timeout only)")
	rootCmd.AddCommand(runCmd)
}
