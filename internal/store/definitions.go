package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plesql/plesql/internal/sqlutil"
)

// Definition is a stored procedure or function as kept on disk.
type Definition struct {
	Name      string
	Kind      string
	Source    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveDefinition inserts or replaces a definition. Names compare
// case-insensitively; the original creation time is kept on replace.
func (d *Database) SaveDefinition(ctx context.Context, def Definition) error {
	now := d.now().UnixMilli()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO definitions (name, kind, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, def.Name, def.Kind, string(def.Source), now, now)
	if err != nil {
		return fmt.Errorf("save definition %s: %w", def.Name, err)
	}
	return nil
}

// DeleteDefinition removes a definition by name.
func (d *Database) DeleteDefinition(ctx context.Context, name string) error {
	n, err := deleteWhere(ctx, d.db, "definitions", "name", name)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return nil
}

// GetDefinition returns a single definition by name.
func (d *Database) GetDefinition(ctx context.Context, name string) (*Definition, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT name, kind, source, created_at, updated_at
		FROM definitions WHERE name = ?
	`, name)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinitions returns every stored definition ordered by name.
func (d *Database) LoadDefinitions(ctx context.Context) ([]Definition, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, kind, source, created_at, updated_at
		FROM definitions ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (Definition, error) {
		return scanDefinition(rows)
	})
}

// DefinitionsNamed returns the stored definitions among names, ordered by
// name. Names that are not stored are skipped.
func (d *Database) DefinitionsNamed(ctx context.Context, names []string) ([]Definition, error) {
	placeholders, args := sqlutil.InClauseArgs(names)
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, kind, source, created_at, updated_at
		FROM definitions WHERE name IN (`+placeholders+`) ORDER BY name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (Definition, error) {
		return scanDefinition(rows)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(s rowScanner) (Definition, error) {
	var def Definition
	var source string
	var created, updated int64
	if err := s.Scan(&def.Name, &def.Kind, &source, &created, &updated); err != nil {
		return Definition{}, err
	}
	def.Source = []byte(source)
	def.CreatedAt = time.UnixMilli(created).UTC()
	def.UpdatedAt = time.UnixMilli(updated).UTC()
	return def, nil
}
