package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plesql/plesql/internal/ui"
	"github.com/plesql/plesql/internal/value"
)

var callCmd = &cobra.Command{
	Use:   "call <name> [arg]...",
	Short: "Call a stored routine or a built-in function",
	Long: `Call a stored procedure or function, or a built-in, with literal
arguments. Each argument is parsed as YAML: 42 is an INT, 1.5 a FLOAT,
true a BOOLEAN, null is NULL, [1, 2] an ARRAY and {a: 1} a DOCUMENT.
Anything else is a STRING. Pass null for OUT parameters.

Examples:
  plesql call add_tax 100 0.2
  plesql call UPPER hello
  plesql call --json tag_customer '{name: ann}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs, err := parseCallArgs(args[1:])
		if err != nil {
			return handleError(ErrInvalidInput, err, "Arguments are YAML scalars or flow collections")
		}

		ctx := cmd.Context()
		a, err := openApp(ctx, consoleSink(stdout))
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.engine.Call(ctx, args[0], callArgs)
		if auditErr := a.audit.LogRun("call", args[0], res.RunID, res.Duration, err); auditErr != nil {
			logger.Warn("audit write failed", "error", auditErr)
		}
		if err != nil {
			if isJSONOutput() {
				return handleError(codeFor(err, ErrScriptFailed), err, "")
			}
			fmt.Fprintln(stdout, describeError(err))
			return &exitError{err: err}
		}

		if isJSONOutput() {
			data := map[string]any{"value": jsonValue(res.Value)}
			if res.Out != nil {
				data["out"] = jsonValue(res.Out)
			}
			if len(res.Output) > 0 {
				data["output"] = res.Output
			}
			outputSuccess(data, &Meta{RunID: res.RunID, DurationMs: res.Duration.Milliseconds()})
			return nil
		}

		if !value.IsNull(res.Value) {
			fmt.Fprintln(stdout, value.ToString(res.Value))
		}
		if res.Out != nil {
			for _, k := range res.Out.Keys() {
				v, _ := res.Out.Get(k)
				fmt.Fprintf(stdout, "%s %s\n", ui.Hint(k+" ="), value.ToString(v))
			}
		}
		return nil
	},
}

func parseCallArgs(raw []string) ([]value.Value, error) {
	out := make([]value.Value, len(raw))
	for i, s := range raw {
		var native any
		if err := yaml.Unmarshal([]byte(s), &native); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		v, err := value.FromNative(native)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// jsonValue renders v the way persisted rows are stored.
func jsonValue(v value.Value) json.RawMessage {
	b, err := value.EncodeJSON(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return b
}

func init() {
	rootCmd.AddCommand(callCmd)
}
