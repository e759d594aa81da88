package genpool

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Event identifies an observable pool signal. Events are purely
// observational and never part of the operation contracts.
type Event int

const (
	// EventSaturated fires when a new request fills the waiting queue to
	// capacity.
	EventSaturated Event = iota

	// EventUnsaturated fires when the waiting queue drops back below
	// capacity.
	EventUnsaturated

	// EventEmpty fires when the last queued request is taken into
	// service, leaving the waiting queue empty.
	EventEmpty

	// EventDrain fires when a completing request is the last one, leaving
	// the queue empty. It follows EventEmpty at such transitions.
	EventDrain

	// EventError fires when a creation or disposal operation fails. The
	// listener receives the originating error.
	EventError
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventSaturated:
		return "saturated"
	case EventUnsaturated:
		return "unsaturated"
	case EventEmpty:
		return "empty"
	case EventDrain:
		return "drain"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type listener struct {
	id uuid.UUID
	fn func(error)
}

// notifier maps events to listener sets. Listeners fire in registration
// order, synchronously on the goroutine that caused the signal, outside
// the pool lock.
type notifier struct {
	mu        sync.RWMutex
	listeners map[Event][]listener
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[Event][]listener)}
}

func (n *notifier) register(ev Event, fn func(error)) func() {
	id := uuid.New()

	n.mu.Lock()
	n.listeners[ev] = append(n.listeners[ev], listener{id: id, fn: fn})
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		// Clone before deleting so snapshots taken by fire stay intact.
		ls := slices.Clone(n.listeners[ev])
		n.listeners[ev] = slices.DeleteFunc(ls, func(l listener) bool {
			return l.id == id
		})
	}
}

func (n *notifier) fire(ev Event, err error) {
	n.mu.RLock()
	ls := n.listeners[ev]
	n.mu.RUnlock()

	for _, l := range ls {
		l.fn(err)
	}
}

// emission is an event recorded during a locked state transition and fired
// after the lock is released.
type emission struct {
	event Event
	err   error
}
