// Package waitqueue provides a bounded FIFO queue of waiters used to hand
// values to blocked requesters in arrival order.
package waitqueue

import (
	"errors"
	"sync"
)

// ErrFull is returned by Add when the queue is at capacity.
var ErrFull = errors.New("wait queue is full")

// Queue is a bounded FIFO queue of waiters. It is safe for concurrent use.
type Queue[V any] struct {
	mu       sync.Mutex
	capacity int
	waiters  []*Waiter[V]
}

// New returns a queue that holds at most capacity waiters.
func New[V any](capacity int) *Queue[V] {
	return &Queue[V]{capacity: capacity}
}

// Add appends a new waiter to the tail of the queue and returns it.
// It returns ErrFull if the queue already holds capacity waiters.
func (q *Queue[V]) Add() (*Waiter[V], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) >= q.capacity {
		return nil, ErrFull
	}
	w := newWaiter[V]()
	q.waiters = append(q.waiters, w)
	return w, nil
}

// Next removes and returns the waiter at the head of the queue,
// or nil if the queue is empty.
func (q *Queue[V]) Next() *Waiter[V] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) == 0 {
		return nil
	}
	w := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	return w
}

// Len returns the number of queued waiters.
func (q *Queue[V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

// Cap returns the queue capacity.
func (q *Queue[V]) Cap() int {
	return q.capacity
}
