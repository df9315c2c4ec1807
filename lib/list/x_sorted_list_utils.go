package list

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/benz9527/xsortedlist/lib/infra"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID generates the lock versions of the node spin mutex.
// Only increase, if it overflows, it will be reset to 1.
// The counter occupies a whole cache line to avoid false sharing
// with the list header fields.
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	val uint64
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

func (c *monotonicNonZeroID) next() uint64 {
	var v uint64
	if v = atomic.AddUint64(&c.val, 1); v == 0 {
		v = atomic.AddUint64(&c.val, 1)
	}
	return v
}

func newMonotonicNonZeroID() *monotonicNonZeroID {
	return &monotonicNonZeroID{val: 0}
}

// segmentedMutex is the per node lock. One operation locks and unlocks
// every node it visits with the same version.
type segmentedMutex interface {
	lock(version uint64)
	unlock(version uint64) bool
}

type mutexEnum uint8

const (
	goNativeMutex mutexEnum = iota
	spinLockMutex
)

func (e mutexEnum) String() string {
	if e == spinLockMutex {
		return "spin"
	}
	return "goNative"
}

func mutexFactory(e mutexEnum) segmentedMutex {
	switch e {
	case spinLockMutex:
		return new(spinMutex)
	case goNativeMutex:
		fallthrough
	default:
	}
	return new(goSyncMutex)
}

const (
	unlocked = 0
)

// spinMutex stores the owner version. Unlocking with another
// version fails and leaves the mutex locked.
type spinMutex uint64

func (lock *spinMutex) lock(version uint64) {
	backoff := uint8(1)
	for !atomic.CompareAndSwapUint64((*uint64)(lock), unlocked, version) {
		if backoff <= 32 {
			for i := uint8(0); i < backoff; i++ {
				infra.ProcYield(20)
			}
			backoff <<= 1
		} else {
			runtime.Gosched()
		}
	}
}

func (lock *spinMutex) unlock(version uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(lock), version, unlocked)
}

type goSyncMutex struct {
	mu sync.Mutex
}

func (m *goSyncMutex) lock(version uint64) {
	m.mu.Lock()
}

func (m *goSyncMutex) unlock(version uint64) bool {
	m.mu.Unlock()
	return true
}
