package genpool

import "errors"

var (
	// ErrPoolEnding is returned by Acquire once shutdown has begun but not
	// yet completed. Outstanding resources can still be released or
	// destroyed while the pool is in this state.
	ErrPoolEnding = errors.New("pool is ending")

	// ErrPoolEnded is returned by Acquire after shutdown has completed.
	ErrPoolEnded = errors.New("pool is destroyed")

	// ErrQueueFull is returned by Acquire when the waiting queue already
	// holds MaxWaitingClients requests. The request is rejected without
	// being enqueued.
	ErrQueueFull = errors.New("max waiting clients reached")

	// ErrNotAcquired is returned by Release when the resource has no
	// borrowed registration: it was never acquired from this pool, or it
	// has already been released.
	ErrNotAcquired = errors.New("resource was not acquired from this pool")

	// ErrTimeout is returned when Acquire or Release exceeds its configured
	// deadline. Use errors.Is to detect it regardless of wrapping.
	ErrTimeout = errors.New("operation timed out")
)
