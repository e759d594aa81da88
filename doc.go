// Package genpool provides a generic pool of expensive-to-create resources
// such as connections, channels, or workers. The pool creates resources
// lazily through a caller-supplied factory, caps how many exist at once,
// queues acquirers in arrival order behind a bounded admission queue, and
// supports graceful and forced shutdown.
//
// Basic usage:
//
//	pool, err := genpool.New(genpool.Config[*sql.Conn]{
//		Create: func(ctx context.Context) (*sql.Conn, error) {
//			return db.Conn(ctx)
//		},
//		Dispose: func(ctx context.Context, conn *sql.Conn) error {
//			return conn.Close()
//		},
//		Max: 10,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	res, err := pool.Acquire(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer res.Close()
//	use(res.Value())
//
// Acquire blocks while every resource is busy, up to the configured
// AcquireTimeout. Requests beyond MaxWaitingClients fail immediately with
// ErrQueueFull rather than queue. Idle resources are reused before new
// ones are created, most recently released first unless Config.FIFO is
// set.
//
// Destroy removes a resource from the pool instead of returning it, for
// example when its connection turned out to be broken. Destroying a
// borrowed resource defers the disposal until the resource is released.
//
// End shuts the pool down: gracefully, waiting for borrowed resources to
// be released, or forcibly, disposing everything at once. The pool also
// exposes observational events (saturated, unsaturated, empty, drain,
// error) through On; see Event for their meaning.
package genpool
