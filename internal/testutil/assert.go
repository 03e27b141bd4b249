package testutil

import (
	"encoding/json"
	"errors"

	"github.com/plesql/plesql/internal/store"
)

// AssertDefinitionExists fails the test if no routine is stored as name.
func (d *TestDB) AssertDefinitionExists(name string) *store.Definition {
	d.t.Helper()
	def, err := d.DB.GetDefinition(d.ctx(), name)
	if err != nil {
		d.t.Errorf("expected definition %s to exist: %v", name, err)
		return nil
	}
	return def
}

// AssertDefinitionNotExists fails the test if a routine is stored as name.
func (d *TestDB) AssertDefinitionNotExists(name string) {
	d.t.Helper()
	_, err := d.DB.GetDefinition(d.ctx(), name)
	if err == nil {
		d.t.Errorf("expected definition %s to not exist", name)
		return
	}
	if !errors.Is(err, store.ErrDefinitionNotFound) {
		d.t.Errorf("GetDefinition(%s): %v", name, err)
	}
}

// AssertPersisted checks the number of result sets stored under target and
// returns them, newest first.
func (d *TestDB) AssertPersisted(target string, results int) []store.PersistedResult {
	d.t.Helper()
	got, err := d.DB.ListPersisted(d.ctx(), target)
	if err != nil {
		d.t.Fatalf("ListPersisted(%s): %v", target, err)
	}
	if len(got) != results {
		d.t.Errorf("target %s: expected %d persisted results, got %d", target, results, len(got))
	}
	return got
}

// AssertLatestRows checks the newest result under target against the
// expected rows, compared as JSON.
func (d *TestDB) AssertLatestRows(target string, want []map[string]any) {
	d.t.Helper()
	got, err := d.DB.ListPersisted(d.ctx(), target)
	if err != nil {
		d.t.Fatalf("ListPersisted(%s): %v", target, err)
	}
	if len(got) == 0 {
		d.t.Errorf("target %s: nothing persisted", target)
		return
	}
	var rows []map[string]any
	if err := json.Unmarshal(got[0].Rows, &rows); err != nil {
		d.t.Fatalf("decode rows of %s: %v", target, err)
	}
	a, _ := json.Marshal(rows)
	b, _ := json.Marshal(want)
	if string(a) != string(b) {
		d.t.Errorf("target %s rows:\n got  %s\n want %s", target, a, b)
	}
}

// AssertRowCount runs a COUNT(*) over table.
func (d *TestDB) AssertRowCount(table string, want int) {
	d.t.Helper()
	var n int
	if err := d.DB.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		d.t.Fatalf("count %s: %v", table, err)
	}
	if n != want {
		d.t.Errorf("table %s: expected %d rows, got %d", table, want, n)
	}
}
