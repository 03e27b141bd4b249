package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/bridge"
	"github.com/plesql/plesql/internal/store"
	"github.com/plesql/plesql/internal/ui"
	"github.com/plesql/plesql/internal/value"
)

var resultsShowAll bool

type persistedView struct {
	ID          int64           `json:"id"`
	PersistedAt time.Time       `json:"persisted_at"`
	Columns     []string        `json:"columns"`
	RowCount    int             `json:"row_count"`
	Rows        json.RawMessage `json:"rows"`
}

type targetView struct {
	Target  string    `json:"target"`
	Results int       `json:"results"`
	Rows    int       `json:"rows"`
	Last    time.Time `json:"last_persisted_at"`
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect results persisted by EXECUTE ... persist",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persist targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		targets, err := db.ListTargets(cmd.Context())
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		views := make([]targetView, len(targets))
		for i, t := range targets {
			views[i] = targetView(t)
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"targets": views}, &Meta{Count: len(views)})
			return nil
		}
		if len(views) == 0 {
			fmt.Fprintln(stdout, ui.Hint("Nothing has been persisted yet."))
			return nil
		}
		tbl := ui.NewTable(4).AlignRight(1).AlignRight(2)
		for _, v := range views {
			tbl.AddRow(ui.Name(v.Target),
				ui.Count(v.Results, "result", "results"),
				ui.RowCount(v.Rows),
				ui.Hint(v.Last.Local().Format(time.DateTime)))
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <target>",
	Short: "Show the latest result persisted under a target",
	Long: `Show the most recent result set persisted under a target, or every
result with --all. Target names are normalized the same way EXECUTE
normalizes them, so "Daily Totals" and daily-totals are the same target.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		target := bridge.Target(args[0])
		results, err := db.ListPersisted(cmd.Context(), target)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if len(results) == 0 {
			return handleErrorMsg(ErrTargetNotFound, fmt.Sprintf("nothing persisted under %q", target), "Run 'plesql results list' to see targets")
		}
		if !resultsShowAll {
			results = results[:1]
		}

		if isJSONOutput() {
			views := make([]persistedView, len(results))
			for i, r := range results {
				views[i] = persistedView{ID: r.ID, PersistedAt: r.PersistedAt, Columns: r.Columns, RowCount: r.RowCount, Rows: r.Rows}
			}
			outputSuccess(map[string]any{"target": target, "results": views}, &Meta{Count: len(views)})
			return nil
		}

		display := ui.NewDisplayContext(os.Stdout, getConfig().Output.Color)
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			if err := printPersisted(display, r); err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
		}
		return nil
	},
}

func printPersisted(display *ui.DisplayContext, r store.PersistedResult) error {
	rows, err := value.DecodeJSON(r.Rows)
	if err != nil {
		return fmt.Errorf("result %d has corrupt rows: %w", r.ID, err)
	}
	arr, ok := rows.(*value.Array)
	if !ok {
		return fmt.Errorf("result %d rows are not an array", r.ID)
	}

	fmt.Fprintf(stdout, "%s %s\n", ui.Header(fmt.Sprintf("#%d", r.ID)),
		ui.Hint(fmt.Sprintf("%s, %s", r.PersistedAt.Local().Format(time.DateTime), ui.RowCount(r.RowCount))))
	tbl := ui.NewResultsTable(display, r.Columns)
	tbl.AddRows(arr)
	fmt.Fprintln(stdout, tbl.Render())
	return nil
}

var resultsClearCmd = &cobra.Command{
	Use:   "clear <target>",
	Short: "Delete every result persisted under a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		target := bridge.Target(args[0])
		n, err := db.ClearTarget(cmd.Context(), target)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"target": target, "deleted": n}, &Meta{Count: int(n)})
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("Deleted %s from %s", ui.Count(int(n), "result", "results"), ui.Name(target)))
		return nil
	},
}

func init() {
	resultsShowCmd.Flags().BoolVar(&resultsShowAll, "all", false, "Show every result, newest first")
	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsClearCmd)
	rootCmd.AddCommand(resultsCmd)
}
