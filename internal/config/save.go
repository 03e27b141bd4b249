package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/plesql/plesql/internal/atomicfile"
)

const defaultTemplate = `# plesql configuration

# SQLite database holding stored procedures, query tables and persisted results.
database = "~/.local/share/plesql/plesql.db"

[engine]
# Wall-clock limit for each script run ("0" disables it).
timeout = "30s"
max_call_depth = 256
# Iteration limit for any single loop; 0 means unlimited.
max_loop_iterations = 0
# Reject EXECUTE queries other than SELECT, WITH, VALUES and EXPLAIN.
read_only_queries = false

[output]
# auto, always or never
color = "auto"
# Hide PRINT output below this severity: DEBUG, INFO, WARN or ERROR.
min_severity = "DEBUG"
# Accent color for headers in rendered docs (ANSI code or #RRGGBB).
# accent = "39"
# code_theme = "monokai"

[log]
# debug, info, warn or error
level = "warn"
# text or json
format = "text"

[audit]
enabled = true
# Defaults to audit.log next to the database.
path = ""
`

// CreateDefault writes a commented default config file to path unless one
// already exists. It reports whether a file was written.
func CreateDefault(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, fmt.Errorf("config path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, []byte(defaultTemplate), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return true, nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
