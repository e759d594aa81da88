package genpool

// Stats is a point-in-time snapshot of pool gauges.
type Stats struct {
	// Size is the number of live resources, borrowed and idle alike.
	Size int

	// Available is the number of idle resources ready for reuse.
	Available int

	// Borrowed is the number of resources currently held by consumers.
	Borrowed int

	// Waiting is the number of queued acquire requests.
	Waiting int
}

// Size returns the number of live resources.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Available returns the number of idle resources.
func (p *Pool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Borrowed returns the number of borrowed resources.
func (p *Pool[T]) Borrowed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.borrowed)
}

// Waiting returns the number of queued acquire requests.
func (p *Pool[T]) Waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Stats returns a consistent snapshot of all gauges.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:      len(p.live),
		Available: len(p.idle),
		Borrowed:  len(p.borrowed),
		Waiting:   p.queue.Len(),
	}
}
