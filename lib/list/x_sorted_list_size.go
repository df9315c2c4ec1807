package list

import "sync"

// sizeCounter is guarded by its own mutex, apart from the node chain.
// Inserts reserve a slot before touching the chain, so the capacity
// bound holds even while several inserts are in flight.
type sizeCounter struct {
	mu      sync.Mutex
	n       int64
	pending int64
}

// reserve fails if n plus the in-flight reservations reached capacity.
// Zero capacity means unbounded.
func (c *sizeCounter) reserve(capacity int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if capacity > 0 && c.n+c.pending >= capacity {
		return false
	}
	c.pending++
	return true
}

func (c *sizeCounter) commit() {
	c.mu.Lock()
	c.pending--
	c.n++
	c.mu.Unlock()
}

func (c *sizeCounter) cancel() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
}

func (c *sizeCounter) decr() {
	c.mu.Lock()
	c.n--
	c.mu.Unlock()
}

func (c *sizeCounter) load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *sizeCounter) reset() {
	c.mu.Lock()
	c.n, c.pending = 0, 0
	c.mu.Unlock()
}
