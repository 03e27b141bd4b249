// Package audit provides an append-only audit log of definition changes and
// script runs.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/plesql/plesql/internal/registry"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Operation string         `json:"op"`     // create, replace, delete, run, call
	Entity    string         `json:"entity"` // procedure, function, script
	ID        string         `json:"id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Error     string         `json:"error,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Logger appends entries to a JSON Lines file.
type Logger struct {
	path    string
	enabled bool
	now     func() time.Time
	mu      sync.Mutex
}

// New creates a logger writing to path. If enabled is false, the logger is
// a no-op.
func New(path string, enabled bool) *Logger {
	if !enabled || path == "" {
		return &Logger{enabled: false, now: time.Now}
	}
	return &Logger{path: path, enabled: true, now: time.Now}
}

// Enabled returns true if the audit logger is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Path returns the log file location, empty when disabled.
func (l *Logger) Path() string {
	return l.path
}

// Log writes an entry to the audit log.
func (l *Logger) Log(entry Entry) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// LogDefinition records a registry change.
func (l *Logger) LogDefinition(ev registry.Event) error {
	return l.Log(Entry{
		Operation: string(ev.Op),
		Entity:    string(ev.Kind),
		ID:        ev.Name,
	})
}

// Listener adapts the logger to registry change notifications. Write
// failures are reported through onError.
func (l *Logger) Listener(onError func(error)) registry.Listener {
	return func(ev registry.Event) {
		if err := l.LogDefinition(ev); err != nil && onError != nil {
			onError(err)
		}
	}
}

// LogRun records a finished script run or call.
func (l *Logger) LogRun(op, target, runID string, duration time.Duration, runErr error) error {
	entry := Entry{
		Operation: op,
		Entity:    "script",
		ID:        target,
		RunID:     runID,
		Outcome:   "ok",
		Extra:     map[string]any{"duration_ms": duration.Milliseconds()},
	}
	if runErr != nil {
		entry.Outcome = "error"
		entry.Error = runErr.Error()
	}
	return l.Log(entry)
}

// Read reads all entries from the audit log. Malformed lines are skipped.
func (l *Logger) Read() ([]Entry, error) {
	if !l.enabled {
		return nil, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Since time.Time
	ID    string
	Op    string
}

// ReadFiltered reads the entries matching f.
func (l *Logger) ReadFiltered(f Filter) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, entry := range all {
		if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
			continue
		}
		if f.ID != "" && entry.ID != f.ID {
			continue
		}
		if f.Op != "" && entry.Operation != f.Op {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, nil
}
