package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"

	"github.com/plesql/plesql/internal/async"
	"github.com/plesql/plesql/internal/sqlutil"
	"github.com/plesql/plesql/internal/store"
	"github.com/plesql/plesql/internal/value"
)

// SQL runs query text as SQL against the host database and persists results
// into its persisted_results table.
type SQL struct {
	db       *store.Database
	logger   *slog.Logger
	readOnly bool
}

// SQLOption configures an SQL bridge.
type SQLOption func(*SQL)

// WithLogger sets the logger for query and persist calls.
func WithLogger(l *slog.Logger) SQLOption {
	return func(s *SQL) {
		if l != nil {
			s.logger = l
		}
	}
}

// ReadOnly rejects query text that does not start with SELECT, WITH,
// VALUES or EXPLAIN. Persisting is still allowed.
func ReadOnly() SQLOption {
	return func(s *SQL) { s.readOnly = true }
}

// NewSQL creates a bridge over db.
func NewSQL(db *store.Database, opts ...SQLOption) *SQL {
	s := &SQL{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var readOnlyPrefixes = []string{"SELECT", "WITH", "VALUES", "EXPLAIN"}

func isReadOnly(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// RunQuery implements Bridge.
func (s *SQL) RunQuery(ctx context.Context, query string) *async.Future[*QueryResult] {
	if s.readOnly && !isReadOnly(query) {
		return async.Failed[*QueryResult](fmt.Errorf("query rejected: only read-only statements are allowed"))
	}
	return async.Go(ctx, func(ctx context.Context) (*QueryResult, error) {
		s.logger.Debug("bridge query", "query", query)
		rows, err := s.db.DB().QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		columns, raw, err := sqlutil.ScanDynamic(rows)
		if err != nil {
			return nil, fmt.Errorf("read query rows: %w", err)
		}
		return buildResult(columns, raw)
	})
}

func buildResult(columns []string, raw [][]any) (*QueryResult, error) {
	res := &QueryResult{Columns: columns, Rows: make([]*value.Document, 0, len(raw))}
	for _, vals := range raw {
		doc := value.NewDocument()
		for i, col := range columns {
			v, err := value.FromNative(vals[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			doc.Set(col, v)
		}
		res.Rows = append(res.Rows, doc)
	}
	return res, nil
}

// Persist implements Bridge. The target name is normalised to a slug, so
// "Daily Totals" and "daily-totals" address the same target.
func (s *SQL) Persist(ctx context.Context, result *QueryResult, target string) *async.Future[struct{}] {
	name := Target(target)
	if name == "" {
		return async.Failed[struct{}](fmt.Errorf("invalid persist target %q", target))
	}
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		data, err := value.EncodeJSON(result.Value())
		if err != nil {
			return struct{}{}, fmt.Errorf("encode result: %w", err)
		}
		var columns []string
		rowCount := 0
		if result != nil {
			columns = result.Columns
			rowCount = len(result.Rows)
		}
		id, err := s.db.PersistResult(ctx, name, columns, data, rowCount)
		if err != nil {
			return struct{}{}, err
		}
		s.logger.Debug("bridge persist", "target", name, "rows", rowCount, "id", id)
		return struct{}{}, nil
	})
}

// Target normalises a persist target name.
func Target(name string) string {
	return slug.Make(name)
}
