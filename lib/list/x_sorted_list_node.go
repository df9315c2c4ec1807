package list

import (
	"github.com/benz9527/xsortedlist/lib/infra"
)

// xSortedListNode fields are guarded by mu. The head sentinel never
// carries a key, its mu is the lock of the first slot.
type xSortedListNode[K infra.Integer, V any] struct {
	key  K
	val  V
	next *xSortedListNode[K, V]
	mu   segmentedMutex
}

func newXSortedListNode[K infra.Integer, V any](key K, val V, e mutexEnum) *xSortedListNode[K, V] {
	return &xSortedListNode[K, V]{
		key: key,
		val: val,
		mu:  mutexFactory(e),
	}
}

func newXSortedListHead[K infra.Integer, V any](e mutexEnum) *xSortedListNode[K, V] {
	return &xSortedListNode[K, V]{
		mu: mutexFactory(e),
	}
}

// locate walks hand over hand from the head and returns with both pred
// and succ locked (succ only if not nil), where pred.key < key <= succ.key.
// Never more than two node locks are held at once.
//
//	+------+       +------+       +------+
//	| head |------>| pred |------>| succ |----> ...
//	+------+       +------+       +------+
func (l *xConcSortedList[K, V]) locate(key K, ver uint64) (pred, succ *xSortedListNode[K, V]) {
	pred = l.head
	pred.mu.lock(ver)
	succ = pred.next
	if succ != nil {
		succ.mu.lock(ver)
	}
	for succ != nil && succ.key < key {
		pred.mu.unlock(ver)
		pred = succ
		succ = pred.next
		if succ != nil {
			succ.mu.lock(ver)
		}
	}
	return pred, succ
}

func unlockPair[K infra.Integer, V any](pred, succ *xSortedListNode[K, V], ver uint64) {
	if succ != nil {
		succ.mu.unlock(ver)
	}
	pred.mu.unlock(ver)
}
