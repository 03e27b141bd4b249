package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/config"
	"github.com/plesql/plesql/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the plesql config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := config.CreateDefault(resolvedConfigPath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
		if isJSONOutput() {
			outputSuccess(map[string]any{"path": resolvedConfigPath, "created": created}, nil)
			return nil
		}
		if !created {
			fmt.Fprintln(stdout, ui.Info("Config already exists at "+ui.Name(resolvedConfigPath)))
			return nil
		}
		fmt.Fprintln(stdout, ui.Success("Created "+ui.Name(resolvedConfigPath)))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, statErr := os.Stat(resolvedConfigPath)
		exists := statErr == nil
		if isJSONOutput() {
			outputSuccess(map[string]any{"path": resolvedConfigPath, "exists": exists}, nil)
			return nil
		}
		fmt.Fprintln(stdout, resolvedConfigPath)
		if errors.Is(statErr, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, ui.Hint("(not created yet; run 'plesql config init')"))
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration in effect after defaults, the config file and
command-line overrides are combined.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		if isJSONOutput() {
			outputSuccess(map[string]any{
				"path":     resolvedConfigPath,
				"database": c.DatabasePath(),
				"audit":    c.AuditPath(),
				"config":   c,
			}, nil)
			return nil
		}
		data, err := config.Encode(c)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Fprintln(stdout, ui.Hint("# "+resolvedConfigPath))
		_, err = stdout.Write(data)
		return err
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
