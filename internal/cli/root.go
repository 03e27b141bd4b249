package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plesql/plesql/internal/config"
	"github.com/plesql/plesql/internal/ui"
)

var (
	// Global flags
	configPath   string
	databaseFlag string
	logLevelFlag string

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
	logger             = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plesql",
	Short: "plesql - run PL|ESQL procedural scripts",
	Long: `plesql runs PL|ESQL scripts: block-scoped procedural programs with
variables, control flow, exceptions, stored procedures and functions, and
embedded queries whose results can be persisted.

Scripts are YAML syntax trees. See 'plesql docs tree-format'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that must work with a broken or missing config
		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" && cmd.Name() != "show" {
			resolvedConfigPath = resolveConfigPath()
			return nil
		}

		loaded, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(codeFor(err, ErrConfigInvalid), err, "Run 'plesql config path' to locate the config file")
		}
		cfg = loaded
		resolvedConfigPath = path
		if databaseFlag != "" {
			cfg.Database = databaseFlag
		}
		if logLevelFlag != "" {
			cfg.Log.Level = logLevelFlag
		}

		logger, err = newLogger(os.Stderr, cfg)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		ui.ConfigureTheme(cfg.Output.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.Output.CodeTheme)
		ui.NewDisplayContext(os.Stdout, cfg.Output.Color).Apply()
		return nil
	},
}

// Execute runs the CLI. Cancelling ctx cancels running scripts.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var reported *exitError
	if !errors.As(err, &reported) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "db", "", "Path to the database (overrides database in config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Diagnostic log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func resolveConfigPath() string {
	if strings.TrimSpace(configPath) != "" {
		return config.ExpandHome(configPath)
	}
	return config.DefaultPath()
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := resolveConfigPath()

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(resolvedPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	return loadedCfg, resolvedPath, nil
}

// newLogger builds the diagnostic logger described by the log section.
func newLogger(w io.Writer, c *config.Config) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("component", "plesql"), nil
}
