// Package config handles the global plesql configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/plesql/plesql/internal/ast"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the global plesql configuration.
type Config struct {
	// Database is the SQLite file holding definitions, query tables and
	// persisted results. A leading ~ is expanded.
	Database string `toml:"database"`

	Engine EngineConfig `toml:"engine"`
	Output OutputConfig `toml:"output"`
	Log    LogConfig    `toml:"log"`
	Audit  AuditConfig  `toml:"audit"`
}

// EngineConfig holds interpreter limits.
type EngineConfig struct {
	// Timeout bounds each script run. Zero disables it.
	Timeout Duration `toml:"timeout"`

	MaxCallDepth int `toml:"max_call_depth"`

	// MaxLoopIterations bounds any single loop. Zero means unlimited.
	MaxLoopIterations int `toml:"max_loop_iterations"`

	// ReadOnlyQueries rejects EXECUTE queries that could modify the database.
	ReadOnlyQueries bool `toml:"read_only_queries"`
}

// OutputConfig controls how PRINT output and rendered docs look.
type OutputConfig struct {
	// Color is auto, always or never.
	Color string `toml:"color"`

	// MinSeverity hides PRINT lines below this level on the console.
	MinSeverity string `toml:"min_severity"`

	// Accent is an ANSI color code ("0" to "255") or a hex color ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme for code blocks in docs.
	CodeTheme string `toml:"code_theme"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AuditConfig configures the append-only audit log.
type AuditConfig struct {
	Enabled bool `toml:"enabled"`

	// Path defaults to audit.log next to the database.
	Path string `toml:"path"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: filepath.Join("~", ".local", "share", "plesql", "plesql.db"),
		Engine: EngineConfig{
			Timeout:      Duration{30 * time.Second},
			MaxCallDepth: 256,
		},
		Output: OutputConfig{Color: "auto", MinSeverity: "DEBUG"},
		Log:    LogConfig{Level: "warn", Format: "text"},
		Audit:  AuditConfig{Enabled: true},
	}
}

// Load loads the configuration from the default location.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path. Keys missing from
// the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	var problems []string
	switch strings.ToLower(c.Output.Color) {
	case "auto", "always", "never":
	default:
		problems = append(problems, fmt.Sprintf("output.color must be auto, always or never (got %q)", c.Output.Color))
	}
	if _, ok := ast.ParseSeverity(c.Output.MinSeverity); !ok {
		problems = append(problems, fmt.Sprintf("output.min_severity %q is not a severity", c.Output.MinSeverity))
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format must be text or json (got %q)", c.Log.Format))
	}
	if c.Engine.MaxCallDepth < 0 {
		problems = append(problems, "engine.max_call_depth must not be negative")
	}
	if c.Engine.MaxLoopIterations < 0 {
		problems = append(problems, "engine.max_loop_iterations must not be negative")
	}
	if c.Engine.Timeout.Duration < 0 {
		problems = append(problems, "engine.timeout must not be negative")
	}
	if strings.TrimSpace(c.Database) == "" {
		problems = append(problems, "database path is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log.level %q is not debug, info, warn or error", c.Log.Level)
	}
	return level, nil
}

// MinSeverity returns the console severity threshold.
func (c *Config) MinSeverity() ast.Severity {
	sev, ok := ast.ParseSeverity(c.Output.MinSeverity)
	if !ok {
		return ast.SeverityDebug
	}
	return sev
}

// DatabasePath returns the database path with ~ expanded.
func (c *Config) DatabasePath() string {
	return ExpandHome(c.Database)
}

// AuditPath returns where the audit log is written.
func (c *Config) AuditPath() string {
	if strings.TrimSpace(c.Audit.Path) != "" {
		return ExpandHome(c.Audit.Path)
	}
	return filepath.Join(filepath.Dir(c.DatabasePath()), "audit.log")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// DefaultPath returns the default config file path.
// Checks ~/.config/plesql/config.toml first (XDG style),
// then falls back to the OS-specific location.
func DefaultPath() string {
	if env := os.Getenv("PLESQL_CONFIG"); env != "" {
		return env
	}

	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "plesql", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/plesql/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "plesql", "config.toml"), nil
}
