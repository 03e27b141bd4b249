package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/interp"
	"github.com/plesql/plesql/internal/ui"
)

type checkIssue struct {
	Script  string    `json:"script"`
	Kind    errs.Kind `json:"kind"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
	Column  int       `json:"column,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check <script.yaml>...",
	Short: "Check scripts without running them",
	Long: `Decode each script and report structural errors: malformed trees,
BREAK outside a loop, RETURN outside a routine, invalid assignment targets
and duplicate parameter names. Nothing is executed and the database is not
opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var issues []checkIssue
		for _, script := range args {
			issues = append(issues, checkScript(script)...)
		}

		if isJSONOutput() {
			data := map[string]any{"scripts": len(args), "issues": issues}
			if len(issues) == 0 {
				outputSuccess(data, &Meta{Count: 0})
				return nil
			}
			outputJSON(Response{
				OK:    false,
				Data:  data,
				Error: &ErrorInfo{Code: ErrScriptInvalid, Message: fmt.Sprintf("%d problems found", len(issues))},
				Meta:  &Meta{Count: len(issues)},
			})
			return &exitError{err: fmt.Errorf("%d problems found", len(issues))}
		}

		if len(issues) == 0 {
			fmt.Fprintln(stdout, ui.Successf("%d scripts ok", len(args)))
			return nil
		}
		for _, is := range issues {
			e := &errs.Error{Kind: is.Kind, Message: is.Message, Line: is.Line, Column: is.Column}
			fmt.Fprintf(stdout, "%s\n  %s\n", ui.Name(is.Script), ui.LanguageError(e))
		}
		fmt.Fprintln(stdout, ui.Hint(ui.Count(len(issues), "problem", "problems")))
		return &exitError{err: fmt.Errorf("%d problems found", len(issues))}
	},
}

func checkScript(script string) []checkIssue {
	prog, err := loadProgram(script)
	if err != nil {
		if errs.KindOf(err) == "" {
			return []checkIssue{{Script: script, Kind: errs.KindRuntime, Message: err.Error()}}
		}
		return []checkIssue{toIssue(script, errs.From(err))}
	}
	var out []checkIssue
	for _, e := range interp.Check(prog) {
		out = append(out, toIssue(script, e))
	}
	return out
}

func toIssue(script string, e *errs.Error) checkIssue {
	return checkIssue{Script: script, Kind: e.Kind, Message: e.Message, Line: e.Line, Column: e.Column}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
