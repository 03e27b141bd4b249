// Package sqlutil holds small database/sql helpers shared by the store and
// the query bridge.
package sqlutil

import (
	"database/sql"
	"strings"
)

// InClauseArgs builds the "?, ?, ?" list for an IN clause over items and
// the matching args. An empty slice yields "NULL", and IN (NULL) matches no
// row.
func InClauseArgs[T any](items []T) (placeholders string, args []any) {
	if len(items) == 0 {
		return "NULL", nil
	}
	args = make([]any, len(items))
	for i, item := range items {
		args[i] = item
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", "), args
}

// ScanRows drains rows through scan and closes them. The first scan error
// stops iteration.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanDynamic scans rows whose shape is not known in advance. Each row is
// returned as one driver value per column, in column order.
func ScanDynamic(rows *sql.Rows) (columns []string, out [][]any, err error) {
	defer rows.Close()

	columns, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	return columns, out, rows.Err()
}
