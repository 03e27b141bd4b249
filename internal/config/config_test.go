package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plesql/plesql/internal/ast"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.Timeout.Duration != 30*time.Second || cfg.Engine.MaxCallDepth != 256 {
		t.Errorf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled by default")
	}
}

func TestLoadFromMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
database = "/tmp/x/plesql.db"

[engine]
timeout = "2m"
max_loop_iterations = 1000

[output]
min_severity = "warning"

[log]
level = "DEBUG"
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.Timeout.Duration != 2*time.Minute {
		t.Errorf("timeout = %v", cfg.Engine.Timeout)
	}
	if cfg.Engine.MaxLoopIterations != 1000 || cfg.Engine.MaxCallDepth != 256 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.MinSeverity() != ast.SeverityWarn {
		t.Errorf("min severity = %s", cfg.MinSeverity())
	}
	if cfg.Output.Color != "auto" || cfg.Log.Format != "text" {
		t.Errorf("defaults lost: %+v %+v", cfg.Output, cfg.Log)
	}
	if got := cfg.AuditPath(); got != filepath.Join("/tmp/x", "audit.log") {
		t.Errorf("audit path = %s", got)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "databse = \"x\"\n", "databse"},
		{"bad color", "[output]\ncolor = \"sometimes\"\n", "output.color"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"negative depth", "[engine]\nmax_call_depth = -1\n", "max_call_depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFrom(writeConfig(t, "[engine]\ntimeout = \"soon\"\n")); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	wrote, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if !wrote {
		t.Fatal("expected the file to be written")
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Engine.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Engine.Timeout)
	}

	wrote, err = CreateDefault(path)
	if err != nil || wrote {
		t.Fatalf("second CreateDefault = %v, %v; want false, nil", wrote, err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Engine.Timeout = Duration{90 * time.Second}
	data, err := Encode(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, string(data))
	back, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v\n%s", err, data)
	}
	if back.Engine.Timeout.Duration != 90*time.Second {
		t.Errorf("timeout = %v", back.Engine.Timeout)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/a/b"); got != filepath.Join(home, "a", "b") {
		t.Errorf("ExpandHome = %s", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome changed an absolute path: %s", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("ExpandHome = %s", got)
	}
}
