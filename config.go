package genpool

import (
	"fmt"
	"log/slog"
	"time"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	// DefaultMax is the default concurrency cap on live resources.
	DefaultMax = 1

	// DefaultMaxWaitingClients is the default capacity of the waiting queue.
	DefaultMaxWaitingClients = 10

	// DefaultAcquireTimeout is the default deadline for Acquire.
	DefaultAcquireTimeout = 10 * time.Second

	// DefaultReleaseTimeout is the default deadline for Release when the
	// release triggers a disposal.
	DefaultReleaseTimeout = 5 * time.Second
)

// Config configures a Pool.
type Config[T any] struct {
	// Create produces a new resource value. Required.
	Create CreateFunc[T]

	// Dispose releases a resource value. Required.
	Dispose DisposeFunc[T]

	// Min is an advisory minimum number of idle resources. The pool creates
	// up to Min resources once at construction time, best effort; the floor
	// is not re-enforced afterwards. Defaults to 0.
	Min int

	// Max caps the number of live resources plus in-flight creations.
	// Defaults to DefaultMax.
	Max int

	// MaxWaitingClients caps the waiting queue. An Acquire arriving while
	// the queue already holds this many requests fails immediately with
	// ErrQueueFull. Defaults to DefaultMaxWaitingClients.
	MaxWaitingClients int

	// AcquireTimeout bounds how long Acquire waits for a resource.
	// Defaults to DefaultAcquireTimeout.
	AcquireTimeout time.Duration

	// ReleaseTimeout bounds how long Release waits for a disposal it
	// triggered. Defaults to DefaultReleaseTimeout.
	ReleaseTimeout time.Duration

	// FIFO selects the idle reuse order: false reuses the most recently
	// released resource first (LIFO), true the oldest (FIFO).
	FIFO bool

	// Logger receives structured lifecycle logs. Defaults to a logger that
	// discards everything.
	Logger *slog.Logger
}

// Validate checks the configuration for values New would reject.
// Zero values are valid and select the documented defaults.
func (c Config[T]) Validate() error {
	if c.Create == nil {
		return fmt.Errorf("create function cannot be nil")
	}
	if c.Dispose == nil {
		return fmt.Errorf("dispose function cannot be nil")
	}
	if c.Min < 0 {
		return fmt.Errorf("min cannot be negative: given %d", c.Min)
	}
	if c.Max < 0 {
		return fmt.Errorf("max cannot be negative: given %d", c.Max)
	}
	if c.MaxWaitingClients < 0 {
		return fmt.Errorf("max waiting clients cannot be negative: given %d", c.MaxWaitingClients)
	}
	if c.AcquireTimeout < 0 {
		return fmt.Errorf("acquire timeout cannot be negative: given %v", c.AcquireTimeout)
	}
	if c.ReleaseTimeout < 0 {
		return fmt.Errorf("release timeout cannot be negative: given %v", c.ReleaseTimeout)
	}
	if max := c.effectiveMax(); c.Min > max {
		return fmt.Errorf("min cannot exceed max: min=%d max=%d", c.Min, max)
	}
	return nil
}

func (c Config[T]) effectiveMax() int {
	if c.Max == 0 {
		return DefaultMax
	}
	return c.Max
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config[T]) withDefaults() Config[T] {
	c.Max = c.effectiveMax()
	if c.MaxWaitingClients == 0 {
		c.MaxWaitingClients = DefaultMaxWaitingClients
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.ReleaseTimeout == 0 {
		c.ReleaseTimeout = DefaultReleaseTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
