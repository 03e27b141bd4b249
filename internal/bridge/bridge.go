// Package bridge connects EXECUTE statements to the host's query engine and
// result storage.
package bridge

import (
	"context"
	"errors"

	"github.com/plesql/plesql/internal/async"
	"github.com/plesql/plesql/internal/value"
)

// Bridge runs opaque query text and persists results. Both operations may
// complete asynchronously; callers await the returned futures.
type Bridge interface {
	RunQuery(ctx context.Context, query string) *async.Future[*QueryResult]
	Persist(ctx context.Context, result *QueryResult, target string) *async.Future[struct{}]
}

// QueryResult is a tabular result: one document per row, keyed by column.
type QueryResult struct {
	Columns []string
	Rows    []*value.Document
}

// Value returns the rows as an array of documents. The array is a copy and
// may be mutated freely.
func (r *QueryResult) Value() *value.Array {
	out := value.NewArray()
	if r == nil {
		return out
	}
	for _, row := range r.Rows {
		out.Append(value.Clone(row))
	}
	return out
}

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = errors.New("no query bridge configured")

// Unavailable is a Bridge for hosts without a query engine. Every call fails.
type Unavailable struct{}

func (Unavailable) RunQuery(context.Context, string) *async.Future[*QueryResult] {
	return async.Failed[*QueryResult](ErrUnavailable)
}

func (Unavailable) Persist(context.Context, *QueryResult, string) *async.Future[struct{}] {
	return async.Failed[struct{}](ErrUnavailable)
}
