// Package testutil provides reusable helpers for tests that need a real
// plesql database.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/plesql/plesql/internal/store"
)

// TestDB is a throwaway database seeded by a builder.
type TestDB struct {
	DB *store.Database
	// Path is the database file, empty for in-memory databases.
	Path string

	t      *testing.T
	onDisk bool
	seed   []string
}

// NewTestDB starts building a test database. Call Build to open it.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	return &TestDB{t: t}
}

// WithSQL queues statements that run right after the database opens.
func (d *TestDB) WithSQL(statements ...string) *TestDB {
	d.seed = append(d.seed, statements...)
	return d
}

// OnDisk stores the database in a file under a temp dir instead of memory,
// for tests where another process or connection must see the same data.
func (d *TestDB) OnDisk() *TestDB {
	d.onDisk = true
	return d
}

// Build opens the database, applies the seed statements and registers
// cleanup with the test.
func (d *TestDB) Build() *TestDB {
	d.t.Helper()

	var (
		db  *store.Database
		err error
	)
	if d.onDisk {
		d.Path = filepath.Join(d.t.TempDir(), "data", "plesql.db")
		db, err = store.Open(d.Path)
	} else {
		db, err = store.OpenInMemory()
	}
	if err != nil {
		d.t.Fatalf("failed to open database: %v", err)
	}
	d.t.Cleanup(func() { db.Close() })
	d.DB = db

	d.Exec(d.seed...)
	return d
}

// Exec runs statements against the database, failing the test on error.
func (d *TestDB) Exec(statements ...string) {
	d.t.Helper()
	for _, s := range statements {
		if _, err := d.DB.DB().Exec(s); err != nil {
			d.t.Fatalf("seed %q: %v", s, err)
		}
	}
}

// Seed opens the database file at path, runs statements and closes it.
// Useful when the code under test opens the file itself.
func Seed(t *testing.T, path string, statements ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create database dir: %v", err)
	}
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()
	for _, s := range statements {
		if _, err := db.DB().Exec(s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
}

func (d *TestDB) ctx() context.Context {
	return context.Background()
}
