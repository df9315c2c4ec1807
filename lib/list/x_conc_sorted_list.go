package list

// References:
// https://www.cs.rochester.edu/u/scott/papers/1991_TOCS_synch.pdf
// The Art of Multiprocessor Programming, chapter 9.5 fine-grained synchronization.
//
// Each node owns a mutex. A traversal holds the lock of the current node
// before it acquires the lock of the next one, so a goroutine waiting for
// a node always holds its predecessor:
//
//	+------+   +---+   +---+   +---+
//	| head |-->| A |-->| B |-->| C |--> nil
//	+------+   +---+   +---+   +---+
//	 locked    locked
//	           ^ pred  ^ succ (waiting)
//
// The whole chain is additionally guarded by a one-shot readers-cleaner
// lock. Point operations enter as readers and fail fast once Destroy or
// Split has claimed the list.

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xsortedlist/lib/infra"
	"github.com/benz9527/xsortedlist/xlog"
)

var _ SortedList[int, struct{}] = (*xConcSortedList[int, struct{}])(nil)

type xConcSortedList[K infra.Integer, V any] struct {
	head    *xSortedListNode[K, V]
	id      *monotonicNonZeroID
	cleaner *cleanerLock
	logger  xlog.XLogger
	antsLog *xlog.AntsXLogger
	stats   *sortedListStats
	opts    *xSortedListOptions
	size    sizeCounter
}

// NewXConcSortedList creates an empty list. Invalid options are
// returned as wrapped errors and no list is created.
func NewXConcSortedList[K infra.Integer, V any](opts ...XSortedListOption) (SortedList[K, V], error) {
	o := defaultXSortedListOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return newXConcSortedList[K, V](o), nil
}

func newXConcSortedList[K infra.Integer, V any](opts *xSortedListOptions) *xConcSortedList[K, V] {
	l := &xConcSortedList[K, V]{
		head:    newXSortedListHead[K, V](opts.mutex),
		id:      newMonotonicNonZeroID(),
		cleaner: newCleanerLock(),
		logger:  opts.logger,
		opts:    opts,
	}
	if l.logger == nil {
		l.logger = xlog.NewNopXLogger()
	}
	l.antsLog = xlog.NewAntsXLogger(l.logger)
	if opts.statsEnabled {
		l.stats = newSortedListStats(opts.statsName, opts.meterProvider, l.size.load)
	}
	return l
}

// enter admits the caller as a reader of the chain.
func (l *xConcSortedList[K, V]) enter(op XSortedListOpKind) bool {
	if l.cleaner.tryRLock() {
		return true
	}
	l.stats.recordRejected(op.String())
	return false
}

func (l *xConcSortedList[K, V]) Size() (int64, error) {
	if l == nil {
		return 0, ErrXSortedListNullArg
	}
	if !l.cleaner.tryRLock() {
		l.stats.recordRejected("size")
		return 0, ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	return l.size.load(), nil
}

func (l *xConcSortedList[K, V]) Insert(key K, val V) (err error) {
	if l == nil {
		return ErrXSortedListNullArg
	}
	if !l.enter(OpInsert) {
		return ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	defer func() {
		l.stats.recordOp(OpInsert, err)
	}()

	if !l.size.reserve(l.opts.capacity) {
		return ErrXSortedListIsFull
	}
	var (
		ver  = l.id.next()
		node = newXSortedListNode[K, V](key, val, l.opts.mutex)
	)
	pred, succ := l.locate(key, ver)
	if succ != nil && succ.key == key {
		unlockPair(pred, succ, ver)
		l.size.cancel()
		return ErrXSortedListAlreadyExists
	}
	node.next = succ
	pred.next = node
	l.size.commit()
	unlockPair(pred, succ, ver)
	return nil
}

func (l *xConcSortedList[K, V]) Remove(key K) (err error) {
	if l == nil {
		return ErrXSortedListNullArg
	}
	if !l.enter(OpRemove) {
		return ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	defer func() {
		l.stats.recordOp(OpRemove, err)
	}()

	ver := l.id.next()
	pred, succ := l.locate(key, ver)
	if succ == nil || succ.key != key {
		unlockPair(pred, succ, ver)
		return ErrXSortedListNotFound
	}
	// Nobody can be waiting for succ: that requires holding pred.
	pred.next = succ.next
	succ.next = nil
	l.size.decr()
	succ.mu.unlock(ver)
	pred.mu.unlock(ver)
	return nil
}

func (l *xConcSortedList[K, V]) Contains(key K) (found bool, err error) {
	if l == nil {
		return false, ErrXSortedListNullArg
	}
	if !l.enter(OpContains) {
		return false, ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	defer func() {
		l.stats.recordOp(OpContains, err)
	}()

	ver := l.id.next()
	pred, succ := l.locate(key, ver)
	found = succ != nil && succ.key == key
	unlockPair(pred, succ, ver)
	return found, nil
}

func (l *xConcSortedList[K, V]) Load(key K) (val V, err error) {
	if l == nil {
		return val, ErrXSortedListNullArg
	}
	if !l.enter(OpLoad) {
		return val, ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	defer func() {
		l.stats.recordOp(OpLoad, err)
	}()

	ver := l.id.next()
	pred, succ := l.locate(key, ver)
	if succ == nil || succ.key != key {
		unlockPair(pred, succ, ver)
		return val, ErrXSortedListNotFound
	}
	val = succ.val
	unlockPair(pred, succ, ver)
	return val, nil
}

func (l *xConcSortedList[K, V]) Update(key K, val V) (err error) {
	if l == nil {
		return ErrXSortedListNullArg
	}
	if !l.enter(OpUpdate) {
		return ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	defer func() {
		l.stats.recordOp(OpUpdate, err)
	}()

	ver := l.id.next()
	pred, succ := l.locate(key, ver)
	if succ == nil || succ.key != key {
		unlockPair(pred, succ, ver)
		return ErrXSortedListNotFound
	}
	succ.val = val
	unlockPair(pred, succ, ver)
	return nil
}

// Compute releases pred before running fn, so fn only blocks
// the operations which have to pass through key.
func (l *xConcSortedList[K, V]) Compute(key K, fn func(V) int) (res int, err error) {
	if l == nil || fn == nil {
		return 0, ErrXSortedListNullArg
	}
	if !l.enter(OpCompute) {
		return 0, ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()
	panicked := true
	defer func() {
		if panicked {
			l.stats.recordOp(OpCompute, ErrXSortedListComputePanic)
			return
		}
		l.stats.recordOp(OpCompute, err)
	}()

	ver := l.id.next()
	pred, succ := l.locate(key, ver)
	if succ == nil || succ.key != key {
		unlockPair(pred, succ, ver)
		panicked = false
		return 0, ErrXSortedListNotFound
	}
	pred.mu.unlock(ver)
	defer succ.mu.unlock(ver)
	res = fn(succ.val)
	panicked = false
	return res, nil
}

func (l *xConcSortedList[K, V]) Foreach(action func(idx int64, key K, val V) bool) error {
	if l == nil || action == nil {
		return ErrXSortedListNullArg
	}
	if !l.cleaner.tryRLock() {
		l.stats.recordRejected("foreach")
		return ErrXSortedListDestroyPending
	}
	defer l.cleaner.rUnlock()

	var (
		ver  = l.id.next()
		cur  = l.head
		next *xSortedListNode[K, V]
		idx  int64
	)
	cur.mu.lock(ver)
	defer func() {
		cur.mu.unlock(ver)
	}()
	for next = cur.next; next != nil; next = cur.next {
		next.mu.lock(ver)
		cur.mu.unlock(ver)
		cur = next
		if !action(idx, cur.key, cur.val) {
			break
		}
		idx++
	}
	return nil
}

// teardown unlinks every node without node locks. It must only run
// after tryCleanup succeeded.
func (l *xConcSortedList[K, V]) teardown(visit func(idx int64, node *xSortedListNode[K, V])) int64 {
	var (
		node = l.head.next
		idx  int64
	)
	l.head.next = nil
	for node != nil {
		next := node.next
		if visit != nil {
			visit(idx, node)
		}
		node.next = nil
		node = next
		idx++
	}
	l.size.reset()
	return idx
}

// Destroy claims the list and discards every node. Concurrent or later
// calls, including a second Destroy, are no-ops.
func (l *xConcSortedList[K, V]) Destroy() {
	if l == nil {
		return
	}
	if !l.cleaner.tryCleanup() {
		l.stats.recordRejected("destroy")
		l.logger.Warn("[x-sorted-list] destroy rejected, list is already being torn down")
		return
	}
	nodes := l.teardown(nil)
	l.stats.recordTeardown("destroy", nodes)
	l.logger.Debug("[x-sorted-list] destroyed", zap.Int64("nodes", nodes))
}

// Split moves the nodes round-robin by position into n new lists, the
// i-th node going to the (i mod n)-th list, and tears down the source.
// Every new list is sorted and has the options of the source.
func (l *xConcSortedList[K, V]) Split(n int) ([]SortedList[K, V], error) {
	if l == nil {
		return nil, ErrXSortedListNullArg
	}
	if n <= 0 {
		return nil, ErrXSortedListInvalidArg
	}
	if !l.cleaner.tryCleanup() {
		l.stats.recordRejected("split")
		return nil, ErrXSortedListDestroyPending
	}

	var (
		dst  = make([]SortedList[K, V], n)
		merr error
	)
	for i := 0; i < n; i++ {
		dst[i] = newXConcSortedList[K, V](l.opts)
	}
	nodes := l.teardown(func(idx int64, node *xSortedListNode[K, V]) {
		merr = multierr.Append(merr, dst[idx%int64(n)].Insert(node.key, node.val))
	})
	l.stats.recordTeardown("split", nodes)
	if merr != nil {
		err := infra.WrapErrorStackWithMessage(merr, "[x-sorted-list] split re-insert failed")
		l.logger.ErrorStack(err, "[x-sorted-list] split partially failed",
			zap.Int("lists", n),
			zap.Int64("nodes", nodes),
		)
		return dst, err
	}
	l.logger.Debug("[x-sorted-list] split",
		zap.Int("lists", n),
		zap.Int64("nodes", nodes),
	)
	return dst, nil
}
