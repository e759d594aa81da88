package genpool

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Resource is a handle to a value acquired from a pool. Identity is the
// ID, never the wrapped value: two resources wrapping equal values
// remain distinct. The pool mints a fresh handle for every borrow, so
// the release guard below covers one borrow cycle only.
type Resource[T any] struct {
	pool  *Pool[T]
	id    uuid.UUID
	value T

	releaseOnce sync.Once
	releaseErr  error
}

// Value returns the wrapped value.
func (r *Resource[T]) Value() T {
	return r.value
}

// ID returns the resource's unique identifier within its pool.
func (r *Resource[T]) ID() uuid.UUID {
	return r.id
}

// Release returns r to the pool.
// It is safe to call Release multiple times; subsequent calls will be no-ops.
// This allows for both defer r.Release(ctx) and explicit release patterns.
// Pool.Release does not share this guard and fails on repeat calls.
func (r *Resource[T]) Release(ctx context.Context) error {
	r.releaseOnce.Do(func() {
		r.releaseErr = r.pool.Release(ctx, r)
	})
	return r.releaseErr
}

// Destroy removes r from the pool and disposes its value. If r is
// currently borrowed the disposal happens when it is released.
func (r *Resource[T]) Destroy(ctx context.Context) error {
	return r.pool.Destroy(ctx, r)
}

// Close releases the resource back to the pool, ignoring any errors.
// This method is provided for convenience with defer statements.
// It is equivalent to calling Release with a background context and ignoring the error.
func (r *Resource[T]) Close() {
	_ = r.Release(context.Background())
}
