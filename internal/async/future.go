// Package async provides single-assignment futures for operations that may
// complete later, such as bridge queries and asynchronous built-ins.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual result of an operation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an unresolved future. Complete it with Resolve or Reject.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that already holds v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Go runs fn on its own goroutine and returns a future for its result.
// A panic in fn rejects the future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				f.Reject(fmt.Errorf("task panicked: %v", p))
			}
		}()
		v, err := fn(ctx)
		f.complete(v, err)
	}()
	return f
}

// Resolve completes the future with v. Later completions are ignored.
func (f *Future[T]) Resolve(v T) {
	f.complete(v, nil)
}

// Reject completes the future with err. Later completions are ignored.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx is cancelled.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
