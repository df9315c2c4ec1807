package list

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/benz9527/xsortedlist/lib/infra"
)

var (
	ErrXSortedListNullArg        = errors.New("[x-sorted-list] null argument")
	ErrXSortedListInvalidArg     = errors.New("[x-sorted-list] invalid argument")
	ErrXSortedListIsFull         = errors.New("[x-sorted-list] is full")
	ErrXSortedListNotFound       = errors.New("[x-sorted-list] key not found")
	ErrXSortedListAlreadyExists  = errors.New("[x-sorted-list] key already exists")
	ErrXSortedListDestroyPending = errors.New("[x-sorted-list] destroy pending")
	ErrXSortedListComputePanic   = errors.New("[x-sorted-list] compute function panicked")
)

// SortedList is a key-ordered singly linked list with unique keys.
// Point operations lock at most two adjacent nodes at a time, so
// operations on disjoint key regions run in parallel. Destroy and
// Split claim the whole list once; every operation arriving after
// that fails with ErrXSortedListDestroyPending.
type SortedList[K infra.Integer, V any] interface {
	Size() (int64, error)
	Insert(key K, val V) error
	Remove(key K) error
	Contains(key K) (bool, error)
	Load(key K) (V, error)
	Update(key K, val V) error
	// Compute runs fn on the payload of key while holding only that
	// node's lock and returns its result. fn must not call back into
	// the list for the same key.
	Compute(key K, fn func(V) int) (int, error)
	// Foreach visits the nodes in ascending key order until action
	// returns false. action runs under the visited node's lock.
	Foreach(action func(idx int64, key K, val V) bool) error
	Batch(ops ...*XSortedListOp[K, V])
	Split(n int) ([]SortedList[K, V], error)
	Destroy()
}

type XSortedListOpKind uint8

const (
	OpInsert XSortedListOpKind = iota + 1
	OpRemove
	OpContains
	OpLoad
	OpUpdate
	OpCompute
)

func (kind XSortedListOpKind) String() string {
	switch kind {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpContains:
		return "contains"
	case OpLoad:
		return "load"
	case OpUpdate:
		return "update"
	case OpCompute:
		return "compute"
	default:
	}
	return "unknown"
}

// XSortedListOp describes one point operation of a batch.
// Err, Found and Computed are written by the worker which ran it.
// OpLoad writes the loaded payload back into Val.
type XSortedListOp[K infra.Integer, V any] struct {
	Kind     XSortedListOpKind
	Key      K
	Val      V
	Fn       func(V) int
	Err      error
	Found    bool
	Computed int
}

func NewInsertOp[K infra.Integer, V any](key K, val V) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpInsert, Key: key, Val: val}
}

func NewRemoveOp[K infra.Integer, V any](key K) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpRemove, Key: key}
}

func NewContainsOp[K infra.Integer, V any](key K) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpContains, Key: key}
}

func NewLoadOp[K infra.Integer, V any](key K) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpLoad, Key: key}
}

func NewUpdateOp[K infra.Integer, V any](key K, val V) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpUpdate, Key: key, Val: val}
}

func NewComputeOp[K infra.Integer, V any](key K, fn func(V) int) *XSortedListOp[K, V] {
	return &XSortedListOp[K, V]{Kind: OpCompute, Key: key, Fn: fn}
}

// BatchErr combines the errors recorded by a finished batch.
// It returns nil if every op succeeded.
func BatchErr[K infra.Integer, V any](ops ...*XSortedListOp[K, V]) error {
	var err error
	for _, op := range ops {
		if op == nil {
			continue
		}
		err = multierr.Append(err, op.Err)
	}
	return err
}
