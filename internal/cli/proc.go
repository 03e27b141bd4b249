package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/atomicfile"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/store"
	"github.com/plesql/plesql/internal/ui"
)

var procExportOutput string

type procView struct {
	Name      string          `json:"name"`
	Kind      ast.RoutineKind `json:"kind"`
	Signature string          `json:"signature"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Source    string          `json:"source,omitempty"`
}

var procCmd = &cobra.Command{
	Use:     "proc",
	Aliases: []string{"procs", "routines"},
	Short:   "Manage stored procedures and functions",
}

var procListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored procedures and functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		defs, err := db.LoadDefinitions(cmd.Context())
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		views := make([]procView, 0, len(defs))
		for _, d := range defs {
			v, err := newProcView(d, false)
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			views = append(views, v)
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"routines": views}, &Meta{Count: len(views)})
			return nil
		}
		if len(views) == 0 {
			fmt.Fprintln(stdout, ui.Hint("No stored procedures or functions."))
			return nil
		}
		tbl := ui.NewTable(3)
		for _, v := range views {
			tbl.AddRow(ui.Name(v.Name), ui.Hint(string(v.Kind)), v.Signature)
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

var procShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a stored routine's syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		def, err := db.GetDefinition(cmd.Context(), args[0])
		if err != nil {
			return handleError(codeFor(err, ErrDatabaseError), err, "Run 'plesql proc list' to see stored routines")
		}
		v, err := newProcView(*def, true)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(v, nil)
			return nil
		}
		fmt.Fprintf(stdout, "%s %s\n", ui.Header(v.Signature), ui.Hint(string(v.Kind)))
		fmt.Fprintf(stdout, "%s\n\n", ui.Hint("updated "+v.UpdatedAt.Format(time.RFC3339)))
		fmt.Fprint(stdout, v.Source)
		return nil
	},
}

var procDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete stored routines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var deleted []string
		for _, name := range args {
			if err := a.defs.Drop(ctx, name); err != nil {
				code := codeFor(err, ErrDatabaseError)
				if errs.Is(err, errs.KindName) {
					code = ErrDefinitionNotFound
				}
				if isJSONOutput() {
					outputError(code, err.Error(), map[string]any{"deleted": deleted}, "")
					return &exitError{err: err}
				}
				return err
			}
			deleted = append(deleted, name)
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"deleted": deleted}, &Meta{Count: len(deleted)})
			return nil
		}
		for _, name := range deleted {
			fmt.Fprintln(stdout, ui.Successf("Deleted %s", ui.Name(name)))
		}
		return nil
	},
}

var procExportCmd = &cobra.Command{
	Use:   "export [name]...",
	Short: "Export routines as a script that recreates them",
	Long: `Write stored routines as a script of CREATE statements. Running the
exported script against another database recreates them. Without names,
every routine is exported.

Examples:
  plesql proc export > routines.yaml
  plesql proc export add_tax bump -o routines.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		var defs []store.Definition
		if len(args) == 0 {
			defs, err = db.LoadDefinitions(ctx)
		} else {
			defs, err = db.DefinitionsNamed(ctx, args)
		}
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if missing := missingNames(args, defs); len(missing) > 0 {
			return handleErrorMsg(ErrDefinitionNotFound, "not found: "+strings.Join(missing, ", "), "Run 'plesql proc list' to see stored routines")
		}

		prog := &ast.Program{}
		for _, d := range defs {
			r, err := ast.DecodeRoutine(d.Source)
			if err != nil {
				return handleError(ErrDatabaseError, fmt.Errorf("stored %s is corrupt: %w", d.Name, err), "")
			}
			prog.Body = append(prog.Body, &ast.Define{Routine: r})
		}
		data, err := ast.Encode(prog)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if procExportOutput == "" {
			if isJSONOutput() {
				outputSuccess(map[string]any{"script": string(data)}, &Meta{Count: len(defs)})
				return nil
			}
			_, err := stdout.Write(data)
			return err
		}

		err = atomicfile.Write(procExportOutput, 0, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
		if isJSONOutput() {
			outputSuccess(map[string]any{"path": procExportOutput}, &Meta{Count: len(defs)})
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("Exported %s to %s", ui.Count(len(defs), "routine", "routines"), ui.Name(procExportOutput)))
		return nil
	},
}

func newProcView(d store.Definition, withSource bool) (procView, error) {
	r, err := ast.DecodeRoutine(d.Source)
	if err != nil {
		return procView{}, fmt.Errorf("stored %s is corrupt: %w", d.Name, err)
	}
	created, updated := d.CreatedAt, d.UpdatedAt
	v := procView{
		Name:      r.Name,
		Kind:      r.Kind,
		Signature: r.Signature(),
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
	if withSource {
		v.Source = string(d.Source)
	}
	return v, nil
}

func missingNames(names []string, defs []store.Definition) []string {
	found := make(map[string]bool, len(defs))
	for _, d := range defs {
		found[strings.ToUpper(d.Name)] = true
	}
	var missing []string
	for _, n := range names {
		if !found[strings.ToUpper(strings.TrimSpace(n))] {
			missing = append(missing, n)
		}
	}
	return missing
}

func init() {
	procExportCmd.Flags().StringVarP(&procExportOutput, "output", "o", "", "Write to this file instead of stdout")
	procCmd.AddCommand(procListCmd, procShowCmd, procDeleteCmd, procExportCmd)
	rootCmd.AddCommand(procCmd)
}
