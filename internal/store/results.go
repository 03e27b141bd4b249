package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plesql/plesql/internal/sqlutil"
)

// PersistedResult is one result set written by EXECUTE ... PERSIST INTO.
type PersistedResult struct {
	ID          int64
	Target      string
	Columns     []string
	Rows        json.RawMessage
	RowCount    int
	PersistedAt time.Time
}

// TargetSummary describes the results persisted under one target.
type TargetSummary struct {
	Target  string
	Results int
	Rows    int
	Last    time.Time
}

// PersistResult stores a result set under target. rows must be a JSON
// array. The write is acknowledged only once the transaction commits.
func (d *Database) PersistResult(ctx context.Context, target string, columns []string, rows json.RawMessage, rowCount int) (int64, error) {
	cols, err := json.Marshal(columns)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		rows = json.RawMessage("[]")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO persisted_results (target, columns, rows, row_count, persisted_at)
		VALUES (?, ?, ?, ?, ?)
	`, target, string(cols), string(rows), rowCount, d.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("persist result into %s: %w", target, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := setMeta(ctx, tx, "last_persist_target", target); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListPersisted returns the results stored under target, newest first.
func (d *Database) ListPersisted(ctx context.Context, target string) ([]PersistedResult, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, target, columns, rows, row_count, persisted_at
		FROM persisted_results WHERE target = ? ORDER BY id DESC
	`, target)
	if err != nil {
		return nil, fmt.Errorf("list persisted results: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (PersistedResult, error) {
		var r PersistedResult
		var cols, data string
		var at int64
		if err := rows.Scan(&r.ID, &r.Target, &cols, &data, &r.RowCount, &at); err != nil {
			return PersistedResult{}, err
		}
		if err := json.Unmarshal([]byte(cols), &r.Columns); err != nil {
			return PersistedResult{}, fmt.Errorf("decode columns of result %d: %w", r.ID, err)
		}
		r.Rows = json.RawMessage(data)
		r.PersistedAt = time.UnixMilli(at).UTC()
		return r, nil
	})
}

// ListTargets summarises every persist target, ordered by name.
func (d *Database) ListTargets(ctx context.Context) ([]TargetSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT target, COUNT(*), COALESCE(SUM(row_count), 0), MAX(persisted_at)
		FROM persisted_results GROUP BY target ORDER BY target
	`)
	if err != nil {
		return nil, fmt.Errorf("list persist targets: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (TargetSummary, error) {
		var s TargetSummary
		var last int64
		if err := rows.Scan(&s.Target, &s.Results, &s.Rows, &last); err != nil {
			return TargetSummary{}, err
		}
		s.Last = time.UnixMilli(last).UTC()
		return s, nil
	})
}

// ClearTarget deletes every result stored under target and reports how
// many were removed.
func (d *Database) ClearTarget(ctx context.Context, target string) (int64, error) {
	return deleteWhere(ctx, d.db, "persisted_results", "target", target)
}
