package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/audit"
	"github.com/plesql/plesql/internal/ui"
)

var (
	auditSince time.Duration
	auditOp    string
	auditName  string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log of runs and definition changes",
	Long: `Show entries from the audit log: every script run, every call and every
CREATE, replace or DROP of a stored routine.

Examples:
  plesql audit
  plesql audit --since 24h --op run
  plesql audit --name add_tax`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		log := audit.New(c.AuditPath(), c.Audit.Enabled)
		if !log.Enabled() {
			return handleErrorMsg(ErrConfigInvalid, "the audit log is disabled", "Set enabled = true in the [audit] section of the config")
		}

		filter := audit.Filter{Op: auditOp, ID: auditName}
		if auditSince > 0 {
			filter.Since = time.Now().Add(-auditSince)
		}
		entries, err := log.ReadFiltered(filter)
		if err != nil {
			return handleError(ErrFileReadError, err, "")
		}
		if auditLimit > 0 && len(entries) > auditLimit {
			entries = entries[len(entries)-auditLimit:]
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"path": log.Path(), "entries": entries}, &Meta{Count: len(entries)})
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(stdout, ui.Hint("No audit entries."))
			return nil
		}
		tbl := ui.NewTable(5)
		for _, e := range entries {
			outcome := e.Outcome
			switch outcome {
			case "ok":
				outcome = ui.SymbolSuccess
			case "error":
				outcome = ui.SymbolError + " " + e.Error
			}
			tbl.AddRow(
				ui.Hint(e.Timestamp.Local().Format(time.DateTime)),
				e.Operation,
				ui.Hint(e.Entity),
				ui.Name(e.ID),
				outcome,
			)
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

func init() {
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "Only show entries newer than this, e.g. 24h")
	auditCmd.Flags().StringVar(&auditOp, "op", "", "Only show one operation: run, call, create, replace or delete")
	auditCmd.Flags().StringVar(&auditName, "name", "", "Only show entries for this script or routine")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Show at most this many of the newest entries (0 = all)")
	rootCmd.AddCommand(auditCmd)
}
