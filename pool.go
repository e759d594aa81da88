package genpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uryu/genpool/internal/waitqueue"
)

// Pool manages a bounded set of resources created and disposed by
// caller-supplied functions. Consumers acquire resources through a FIFO
// admission queue bounded by Config.MaxWaitingClients; at most Config.Max
// resources exist (or are being created) at any time.
//
// Multiple pools are fully independent; nothing is shared between instances.
type Pool[T any] struct {
	conf   Config[T]
	log    *slog.Logger
	events *notifier

	mu             sync.Mutex
	live           map[uuid.UUID]*Resource[T]
	idle           []*Resource[T]
	borrowed       map[uuid.UUID]*Resource[T]
	pendingDestroy map[uuid.UUID]*disposal
	queue          *waitqueue.Queue[acquired[T]]
	creating       int  // factory creations in flight, counts toward Max
	serving        int  // creations launched on behalf of queued waiters
	queueActive    bool // an acquire has been admitted since the last drain
	ending         bool
	forced         bool
	ended          bool
	endDone        chan struct{}
}

// acquired is the outcome delivered to a queued waiter.
type acquired[T any] struct {
	res *Resource[T]
	err error
}

// disposal tracks one resource's destruction. The error is readable after
// done is closed. started is guarded by the pool mutex and marks the point
// the dispose call was launched, so it never runs twice.
type disposal struct {
	started bool
	done    chan struct{}
	err     error
}

func newDisposal() *disposal {
	return &disposal{done: make(chan struct{})}
}

// New creates a pool from conf. It returns an error if the configuration
// is invalid. When conf.Min is positive the pool starts creating that many
// idle resources in the background, best effort.
func New[T any](conf Config[T]) (*Pool[T], error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool configuration: %w", err)
	}
	conf = conf.withDefaults()

	p := &Pool[T]{
		conf:           conf,
		log:            conf.Logger,
		events:         newNotifier(),
		live:           make(map[uuid.UUID]*Resource[T]),
		borrowed:       make(map[uuid.UUID]*Resource[T]),
		pendingDestroy: make(map[uuid.UUID]*disposal),
		queue:          waitqueue.New[acquired[T]](conf.MaxWaitingClients),
		endDone:        make(chan struct{}),
	}

	if conf.Min > 0 {
		go p.prewarm(conf.Min)
	}
	return p, nil
}

// Acquire returns a resource from the pool, reusing an idle one when
// available and creating a new one otherwise. It blocks until a resource
// is available, the configured AcquireTimeout elapses, or ctx is done.
//
// It fails immediately with ErrPoolEnding or ErrPoolEnded once shutdown
// has started, and with ErrQueueFull when MaxWaitingClients requests are
// already waiting.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	var ems []emission

	p.mu.Lock()
	switch {
	case p.ended:
		p.mu.Unlock()
		return nil, ErrPoolEnded
	case p.ending:
		p.mu.Unlock()
		return nil, ErrPoolEnding
	}
	w, err := p.queue.Add()
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w (maxWaitingClients=%d)", ErrQueueFull, p.conf.MaxWaitingClients)
	}
	p.queueActive = true
	if p.queue.Len() == p.conf.MaxWaitingClients {
		ems = append(ems, emission{event: EventSaturated})
	}
	p.dispatchLocked(&ems)
	p.noteDrainLocked(&ems)
	p.mu.Unlock()
	p.emit(ems)

	wctx, cancel := context.WithTimeout(ctx, p.conf.AcquireTimeout)
	defer cancel()

	select {
	case a := <-w.C():
		return a.res, a.err
	case <-wctx.Done():
		if !w.Abandon() {
			// A delivery raced the deadline; the value is already buffered.
			a := <-w.C()
			return a.res, a.err
		}
		// The waiter stays queued and still counts toward the admission
		// limit. If a resource is eventually produced for it, the failed
		// delivery routes it back to the idle list.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.log.Debug("acquire timed out", "timeout", p.conf.AcquireTimeout)
		return nil, fmt.Errorf("acquire did not complete within %v: %w", p.conf.AcquireTimeout, ErrTimeout)
	}
}

// Release returns a borrowed resource to the pool. It fails with
// ErrNotAcquired when res is not currently borrowed from this pool.
//
// A plain release completes synchronously. When the release triggers a
// disposal, because the resource is marked for destruction or the pool is
// ending, the call waits for the disposal under ReleaseTimeout. The
// disposal error goes to the waiting Destroy caller when there is one,
// otherwise to this call.
func (p *Pool[T]) Release(ctx context.Context, res *Resource[T]) error {
	if res == nil || res.pool != p {
		return ErrNotAcquired
	}

	var ems []emission

	p.mu.Lock()
	if _, ok := p.borrowed[res.id]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("cannot release resource %s: %w", res.id, ErrNotAcquired)
	}
	delete(p.borrowed, res.id)

	if d, ok := p.pendingDestroy[res.id]; ok {
		// Destroy was requested while the resource was borrowed. Run the
		// deferred disposal now; its error belongs to the destroy caller.
		d.started = true
		p.mu.Unlock()
		go p.dispose(res, d)
		return p.awaitRelease(ctx, d, false)
	}

	if p.ending {
		d := newDisposal()
		d.started = true
		p.pendingDestroy[res.id] = d
		p.mu.Unlock()
		go p.dispose(res, d)
		return p.awaitRelease(ctx, d, true)
	}

	p.pushIdleLocked(res)
	p.dispatchLocked(&ems)
	p.noteDrainLocked(&ems)
	p.mu.Unlock()
	p.emit(ems)
	p.log.Debug("resource released", "resource_id", res.id)
	return nil
}

// awaitRelease waits for a disposal triggered by a release, bounded by
// ReleaseTimeout and the caller's context. ownsErr says whether the
// disposal error belongs to this release (true when the pool is ending)
// or to a waiting Destroy caller. The disposal itself is never canceled;
// on timeout it keeps running in the background.
func (p *Pool[T]) awaitRelease(ctx context.Context, d *disposal, ownsErr bool) error {
	wctx, cancel := context.WithTimeout(ctx, p.conf.ReleaseTimeout)
	defer cancel()

	select {
	case <-d.done:
		if ownsErr {
			return d.err
		}
		return nil
	case <-wctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("release did not complete within %v: %w", p.conf.ReleaseTimeout, ErrTimeout)
	}
}

// Destroy removes res from the pool and disposes its value. Destroying a
// resource the pool does not know is a no-op success. An idle resource is
// disposed before Destroy returns; a borrowed one is disposed when it is
// released, and Destroy waits for that disposal (or ctx). Either way the
// disposal error is reported to the caller and the resource is removed
// from the pool's bookkeeping even when disposal fails.
func (p *Pool[T]) Destroy(ctx context.Context, res *Resource[T]) error {
	if res == nil || res.pool != p {
		return nil
	}

	p.mu.Lock()
	if _, ok := p.live[res.id]; !ok {
		p.mu.Unlock()
		return nil
	}
	if d, ok := p.pendingDestroy[res.id]; ok {
		// Another destroy is already pending or running; join it.
		p.mu.Unlock()
		return p.awaitDestroy(ctx, d)
	}
	d := newDisposal()
	p.pendingDestroy[res.id] = d

	if _, ok := p.borrowed[res.id]; ok {
		p.mu.Unlock()
		p.log.Debug("destroy deferred until release", "resource_id", res.id)
		return p.awaitDestroy(ctx, d)
	}

	d.started = true
	p.removeIdleLocked(res)
	p.mu.Unlock()
	return p.dispose(res, d)
}

// awaitDestroy waits for a disposal owned by another code path. If ctx
// ends first the caller stops waiting but the disposal still happens.
func (p *Pool[T]) awaitDestroy(ctx context.Context, d *disposal) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End shuts the pool down. It is safe to call multiple times; later calls
// join the shutdown already in progress, and a forced End escalates a
// graceful one.
//
// With force, every live resource is disposed concurrently, borrowed or
// not, and queued acquires fail with ErrPoolEnding. Without force, idle
// resources are disposed immediately while borrowed ones are disposed as
// their holders release them; queued acquires are still served and unwind
// the same way.
//
// End returns once every resource is gone and no acquisition is queued or
// running, reporting the first disposal failure from its own sweep. If ctx
// ends first End returns ctx.Err() while shutdown continues in the
// background.
func (p *Pool[T]) End(ctx context.Context, force bool) error {
	var ems []emission

	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return nil
	}
	begin := !p.ending
	p.ending = true
	p.forced = p.forced || force

	type target struct {
		res *Resource[T]
		d   *disposal
	}
	var targets []target

	if force {
		for id, res := range p.live {
			d := p.pendingDestroy[id]
			if d == nil {
				d = newDisposal()
				p.pendingDestroy[id] = d
			}
			if d.started {
				continue
			}
			d.started = true
			delete(p.borrowed, id)
			targets = append(targets, target{res: res, d: d})
		}
		p.idle = nil
		for p.queue.Len() > 0 {
			w := p.nextWaiterLocked(&ems)
			w.Deliver(acquired[T]{err: fmt.Errorf("acquire aborted by shutdown: %w", ErrPoolEnding)})
		}
	} else if begin {
		for _, res := range p.idle {
			d := newDisposal()
			d.started = true
			p.pendingDestroy[res.id] = d
			targets = append(targets, target{res: res, d: d})
		}
		p.idle = nil
	}

	p.noteDrainLocked(&ems)
	p.maybeFinishEndLocked()
	done := p.endDone
	p.mu.Unlock()
	p.emit(ems)

	if begin {
		p.log.Info("pool shutdown started", "force", force, "destroying", len(targets))
	}

	g := new(errgroup.Group)
	for _, t := range targets {
		g.Go(func() error {
			return p.dispose(t.res, t.d)
		})
	}
	err := g.Wait()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Close shuts the pool down gracefully. It is shorthand for
// End(context.Background(), false).
func (p *Pool[T]) Close() error {
	return p.End(context.Background(), false)
}

// WithResource acquires a resource, passes its value to fn, and releases
// it when fn returns. The release error is ignored; fn's error is
// returned as is.
func (p *Pool[T]) WithResource(ctx context.Context, fn func(value T) error) error {
	res, err := p.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire resource: %w", err)
	}
	defer res.Close()
	return fn(res.Value())
}

// dispose runs the caller-supplied Dispose for res and then removes res
// from every registry map, regardless of the disposal outcome. A disposal
// failure is reported to the caller and emitted as EventError, but never
// leaves the resource in the pool.
func (p *Pool[T]) dispose(res *Resource[T], d *disposal) error {
	err := p.conf.Dispose(context.Background(), res.value)
	if err != nil {
		p.log.Error("resource disposal failed", "resource_id", res.id, "error", err)
	} else {
		p.log.Debug("resource disposed", "resource_id", res.id)
	}

	var ems []emission
	p.mu.Lock()
	delete(p.live, res.id)
	delete(p.borrowed, res.id)
	delete(p.pendingDestroy, res.id)
	if err != nil {
		ems = append(ems, emission{event: EventError, err: err})
	}
	p.dispatchLocked(&ems)
	p.noteDrainLocked(&ems)
	p.maybeFinishEndLocked()
	p.mu.Unlock()
	p.emit(ems)

	if d != nil {
		d.err = err
		close(d.done)
	}
	return err
}

// dispatchLocked serves queued waiters while resources are available:
// idle resources are always preferred over creating new ones, and a new
// creation starts only while live resources plus in-flight creations stay
// below Max. Deliveries that find their waiter gone route the resource
// back to the idle list.
func (p *Pool[T]) dispatchLocked(ems *[]emission) {
	for p.queue.Len() > 0 {
		if len(p.idle) > 0 {
			w := p.nextWaiterLocked(ems)
			// Mint a fresh handle for each borrow so the previous holder's
			// spent release guard does not travel with the resource.
			res := p.popIdleLocked()
			res = &Resource[T]{pool: p, id: res.id, value: res.value}
			p.borrowed[res.id] = res
			if !w.Deliver(acquired[T]{res: res}) {
				delete(p.borrowed, res.id)
				p.pushIdleLocked(res)
			}
			continue
		}
		if len(p.live)+p.creating < p.conf.Max {
			w := p.nextWaiterLocked(ems)
			p.creating++
			p.serving++
			go p.create(w)
			continue
		}
		return
	}
}

// create runs the caller-supplied Create on behalf of a queued waiter.
// The creation is never canceled; if the waiter stopped waiting by the
// time the resource exists, the resource is salvaged into the idle list
// so the work is not wasted, or disposed when the pool is ending.
func (p *Pool[T]) create(w *waitqueue.Waiter[acquired[T]]) {
	value, err := p.conf.Create(context.Background())

	var ems []emission
	p.mu.Lock()
	p.creating--
	p.serving--
	if err != nil {
		p.log.Error("resource creation failed", "error", err)
		ems = append(ems, emission{event: EventError, err: err})
		w.Deliver(acquired[T]{err: err})
	} else {
		res := &Resource[T]{pool: p, id: uuid.New(), value: value}
		p.live[res.id] = res
		p.log.Debug("resource created", "resource_id", res.id, "size", len(p.live))
		delivered := false
		if p.forced {
			// The pool was force-ended while the creation was in flight;
			// the waiter gets the shutdown error, not the resource.
			w.Deliver(acquired[T]{err: fmt.Errorf("acquire aborted by shutdown: %w", ErrPoolEnding)})
		} else {
			p.borrowed[res.id] = res
			delivered = w.Deliver(acquired[T]{res: res})
			if !delivered {
				delete(p.borrowed, res.id)
			}
		}
		if !delivered {
			if p.ending {
				d := newDisposal()
				d.started = true
				p.pendingDestroy[res.id] = d
				go p.dispose(res, d)
			} else {
				p.pushIdleLocked(res)
			}
		}
	}
	p.dispatchLocked(&ems)
	p.noteDrainLocked(&ems)
	p.maybeFinishEndLocked()
	p.mu.Unlock()
	p.emit(ems)
}

// prewarm creates up to n idle resources through the normal creation
// gate. It runs once, at construction; failures surface as EventError and
// the pool simply starts smaller.
func (p *Pool[T]) prewarm(n int) {
	g := new(errgroup.Group)
	for range n {
		p.mu.Lock()
		if p.ending || len(p.live)+p.creating >= p.conf.Max {
			p.mu.Unlock()
			break
		}
		p.creating++
		p.mu.Unlock()

		g.Go(func() error {
			value, err := p.conf.Create(context.Background())

			var ems []emission
			p.mu.Lock()
			p.creating--
			if err != nil {
				p.log.Error("prewarm creation failed", "error", err)
				ems = append(ems, emission{event: EventError, err: err})
			} else {
				res := &Resource[T]{pool: p, id: uuid.New(), value: value}
				p.live[res.id] = res
				if p.ending {
					// Shutdown began while this creation was in flight; the
					// idle sweep already ran, so the resource goes straight
					// to disposal instead of the idle list.
					d := newDisposal()
					d.started = true
					p.pendingDestroy[res.id] = d
					go p.dispose(res, d)
				} else {
					p.pushIdleLocked(res)
					p.dispatchLocked(&ems)
					p.noteDrainLocked(&ems)
				}
			}
			p.maybeFinishEndLocked()
			p.mu.Unlock()
			p.emit(ems)
			return nil
		})
	}
	_ = g.Wait()
}

// nextWaiterLocked pops the head waiter, recording the unsaturated and
// empty transitions the pop causes.
func (p *Pool[T]) nextWaiterLocked(ems *[]emission) *waitqueue.Waiter[acquired[T]] {
	atCap := p.queue.Len() == p.conf.MaxWaitingClients
	w := p.queue.Next()
	if w == nil {
		return nil
	}
	if atCap {
		*ems = append(*ems, emission{event: EventUnsaturated})
	}
	if p.queue.Len() == 0 {
		*ems = append(*ems, emission{event: EventEmpty})
	}
	return w
}

// noteDrainLocked records the drain transition: the queue has fully
// unwound, with nothing waiting and nothing running on a waiter's behalf.
func (p *Pool[T]) noteDrainLocked(ems *[]emission) {
	if p.queueActive && p.queue.Len() == 0 && p.serving == 0 {
		p.queueActive = false
		*ems = append(*ems, emission{event: EventDrain})
	}
}

// maybeFinishEndLocked completes shutdown once nothing is left: no live
// resources, no creations in flight, and no queued waiters.
func (p *Pool[T]) maybeFinishEndLocked() {
	if p.ending && !p.ended && len(p.live) == 0 && p.creating == 0 && p.queue.Len() == 0 {
		p.ended = true
		close(p.endDone)
		p.log.Info("pool shutdown complete")
	}
}

func (p *Pool[T]) pushIdleLocked(res *Resource[T]) {
	p.idle = append(p.idle, res)
}

// popIdleLocked removes one idle resource per the configured reuse order:
// oldest release first with FIFO, most recent first otherwise.
func (p *Pool[T]) popIdleLocked() *Resource[T] {
	if p.conf.FIFO {
		res := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		return res
	}
	n := len(p.idle) - 1
	res := p.idle[n]
	p.idle[n] = nil
	p.idle = p.idle[:n]
	return res
}

// removeIdleLocked removes the idle entry with res's identity. Compared
// by ID, not pointer: the caller may hold a handle from an earlier
// borrow of the same resource.
func (p *Pool[T]) removeIdleLocked(res *Resource[T]) {
	for i, r := range p.idle {
		if r.id == res.id {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return
		}
	}
}

// emit fires the recorded emissions after the pool mutex is released.
// Listeners run on the calling goroutine and may call back into the pool.
func (p *Pool[T]) emit(ems []emission) {
	for _, e := range ems {
		p.events.fire(e.event, e.err)
	}
}

// On registers fn to be invoked each time ev fires and returns a function
// that unregisters it. The error argument is non-nil only for EventError.
func (p *Pool[T]) On(ev Event, fn func(error)) func() {
	return p.events.register(ev, fn)
}
