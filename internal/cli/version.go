package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/buildinfo"
	"github.com/plesql/plesql/internal/builtins"
	"github.com/plesql/plesql/internal/store"
	"github.com/plesql/plesql/internal/ui"
)

type versionView struct {
	buildinfo.Info
	SchemaVersion int `json:"schema_version"`
	Builtins      int `json:"builtins"`
}

var readBuildInfo = buildinfo.Read

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show plesql version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view := versionView{
			Info:          readBuildInfo(),
			SchemaVersion: store.CurrentDBVersion,
			Builtins:      len(builtins.Default().List()),
		}

		if isJSONOutput() {
			outputSuccess(view, nil)
			return nil
		}

		fmt.Fprintf(stdout, "%s %s\n", ui.AccentBold.Render("plesql"), view.Version)
		t := ui.NewTable(2)
		t.AddRow("module", view.ModulePath)
		if view.Commit != "" {
			commit := view.Commit
			if view.Modified {
				commit += " (modified)"
			}
			t.AddRow("commit", commit)
		}
		if view.CommitTime != "" {
			t.AddRow("built", view.CommitTime)
		}
		t.AddRow("go", view.GoVersion)
		t.AddRow("platform", view.Platform)
		t.AddRow("schema", fmt.Sprintf("v%d", view.SchemaVersion))
		t.AddRow("builtins", fmt.Sprintf("%d", view.Builtins))
		fmt.Fprint(stdout, t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
