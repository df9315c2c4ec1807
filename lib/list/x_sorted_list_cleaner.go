package list

import "sync"

type cleanerState uint8

const (
	cleanerIdle cleanerState = iota
	cleanerDraining
	cleanerDead
)

func (s cleanerState) String() string {
	switch s {
	case cleanerIdle:
		return "idle"
	case cleanerDraining:
		return "draining"
	case cleanerDead:
		return "dead"
	default:
	}
	return "unknown"
}

// cleanerLock is a one-shot readers-cleaner lock.
//
// Readers enter freely while the lock is idle. The first cleaner flips it
// to draining, which rejects every later reader and cleaner without
// blocking, and waits until the admitted readers leave. Once drained the
// lock is dead forever. There is no way back to idle.
type cleanerLock struct {
	mu      sync.Mutex
	drained *sync.Cond
	readers int64
	state   cleanerState
}

func newCleanerLock() *cleanerLock {
	c := &cleanerLock{state: cleanerIdle}
	c.drained = sync.NewCond(&c.mu)
	return c
}

func (c *cleanerLock) tryRLock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != cleanerIdle {
		return false
	}
	c.readers++
	return true
}

func (c *cleanerLock) rUnlock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readers--
	if c.readers == 0 && c.state == cleanerDraining {
		c.drained.Signal()
	}
}

// tryCleanup returns true only to the single winning cleaner,
// after all readers admitted before it have left.
func (c *cleanerLock) tryCleanup() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != cleanerIdle {
		return false
	}
	c.state = cleanerDraining
	for c.readers > 0 {
		c.drained.Wait()
	}
	c.state = cleanerDead
	return true
}

func (c *cleanerLock) isDead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cleanerDead
}

func (c *cleanerLock) loadState() (cleanerState, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.readers
}
