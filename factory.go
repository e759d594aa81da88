package genpool

import (
	"context"
	"errors"
	"sync"
)

// CreateFunc produces a new resource value. It is invoked by the pool
// outside of any internal lock and must be safe for concurrent use.
// The pool never cancels a creation once started; ctx carries deadlines
// or values the function itself may want, not pool-driven cancellation.
type CreateFunc[T any] func(ctx context.Context) (T, error)

// DisposeFunc releases a resource value. Like CreateFunc it runs outside
// of any internal lock and must be safe for concurrent use.
type DisposeFunc[T any] func(ctx context.Context, value T) error

// CreateResult carries the outcome of a channel-style creation operation.
type CreateResult[T any] struct {
	Value T
	Err   error
}

// CreateFromCallback adapts a callback-completion creation operation into a
// CreateFunc. fn must eventually invoke done exactly once with either a
// value or an error; additional invocations are ignored.
func CreateFromCallback[T any](fn func(ctx context.Context, done func(T, error))) CreateFunc[T] {
	return func(ctx context.Context) (T, error) {
		ch := make(chan CreateResult[T], 1)
		var once sync.Once
		fn(ctx, func(value T, err error) {
			once.Do(func() {
				ch <- CreateResult[T]{Value: value, Err: err}
			})
		})
		select {
		case r := <-ch:
			return r.Value, r.Err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// CreateFromChannel adapts a future-style creation operation into a
// CreateFunc. fn returns a channel that eventually yields the result.
// A channel that is closed without a result completes with an error.
func CreateFromChannel[T any](fn func(ctx context.Context) <-chan CreateResult[T]) CreateFunc[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		ch := fn(ctx)
		if ch == nil {
			return zero, errors.New("creation channel is nil")
		}
		select {
		case r, ok := <-ch:
			if !ok {
				return zero, errors.New("creation channel closed without a result")
			}
			return r.Value, r.Err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// DisposeFromCallback adapts a callback-completion disposal operation into
// a DisposeFunc. fn must eventually invoke done exactly once; additional
// invocations are ignored.
func DisposeFromCallback[T any](fn func(ctx context.Context, value T, done func(error))) DisposeFunc[T] {
	return func(ctx context.Context, value T) error {
		ch := make(chan error, 1)
		var once sync.Once
		fn(ctx, value, func(err error) {
			once.Do(func() {
				ch <- err
			})
		})
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DisposeFromChannel adapts a future-style disposal operation into a
// DisposeFunc. A channel that is closed without a result completes with
// an error.
func DisposeFromChannel[T any](fn func(ctx context.Context, value T) <-chan error) DisposeFunc[T] {
	return func(ctx context.Context, value T) error {
		ch := fn(ctx, value)
		if ch == nil {
			return errors.New("disposal channel is nil")
		}
		select {
		case err, ok := <-ch:
			if !ok {
				return errors.New("disposal channel closed without a result")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
