package waitqueue

import (
	"sync"

	"github.com/google/uuid"
)

// Waiter represents a single queued request awaiting a value.
// Exactly one of Deliver or Abandon claims the waiter; the claim decides
// whether the eventual receiver is the waiter or nobody.
type Waiter[V any] struct {
	id uuid.UUID

	mu      sync.Mutex
	claimed bool
	ch      chan V
}

func newWaiter[V any]() *Waiter[V] {
	return &Waiter[V]{
		id: uuid.New(),
		ch: make(chan V, 1),
	}
}

// ID returns the waiter's unique identifier.
func (w *Waiter[V]) ID() uuid.UUID {
	return w.id
}

// C returns the channel on which a delivered value arrives.
// It yields at most one value.
func (w *Waiter[V]) C() <-chan V {
	return w.ch
}

// Deliver hands v to the waiter. It reports false if the waiter was
// already delivered to or abandoned, in which case the caller still owns v.
func (w *Waiter[V]) Deliver(v V) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed {
		return false
	}
	w.claimed = true
	w.ch <- v // buffered, single winner, never blocks
	return true
}

// Abandon marks the waiter as no longer interested. It reports false if a
// value was already delivered; the caller must then drain C to claim it.
func (w *Waiter[V]) Abandon() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed {
		return false
	}
	w.claimed = true
	return true
}
