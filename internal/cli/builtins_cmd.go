package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/builtins"
	"github.com/plesql/plesql/internal/ui"
)

var builtinsCategory string

type builtinView struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Signature string `json:"signature"`
	Doc       string `json:"doc"`
	Strict    bool   `json:"null_in_null_out"`
}

var builtinsCmd = &cobra.Command{
	Use:   "builtins [name]",
	Short: "List built-in functions",
	Long: `List the built-in functions scripts can call, or describe one.

Examples:
  plesql builtins
  plesql builtins --category string
  plesql builtins substr`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := builtins.Default()

		if len(args) == 1 {
			f, ok := reg.Lookup(args[0])
			if !ok {
				return handleErrorMsg(ErrDefinitionNotFound, fmt.Sprintf("unknown built-in %q", args[0]), "Run 'plesql builtins' to list them")
			}
			v := newBuiltinView(f)
			if isJSONOutput() {
				outputSuccess(v, nil)
				return nil
			}
			fmt.Fprintln(stdout, ui.Header(v.Signature))
			fmt.Fprintln(stdout, "  "+v.Doc)
			if v.Strict {
				fmt.Fprintln(stdout, ui.Hint("  Returns NULL when any argument is NULL."))
			}
			return nil
		}

		var views []builtinView
		for _, f := range reg.List() {
			if builtinsCategory != "" && f.Category != builtinsCategory {
				continue
			}
			views = append(views, newBuiltinView(f))
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"builtins": views}, &Meta{Count: len(views)})
			return nil
		}
		category := ""
		tbl := ui.NewTable(2)
		for _, v := range views {
			if v.Category != category {
				category = v.Category
				tbl.AddSection(category)
			}
			tbl.AddRow("  "+ui.Name(v.Signature), ui.Hint(v.Doc))
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

func newBuiltinView(f *builtins.Function) builtinView {
	return builtinView{
		Name:      f.Name,
		Category:  f.Category,
		Signature: f.Signature(),
		Doc:       f.Doc,
		Strict:    f.Strict,
	}
}

func init() {
	builtinsCmd.Flags().StringVar(&builtinsCategory, "category", "", "Only list one category (string, number, date, array, document, misc)")
	rootCmd.AddCommand(builtinsCmd)
}
