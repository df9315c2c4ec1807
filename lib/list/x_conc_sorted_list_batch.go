package list

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/benz9527/xsortedlist/lib/infra"
)

// Batch runs every op concurrently on a worker pool and returns after
// all of them finished. Results are written back into the ops. Ops on
// disjoint keys never block each other beyond the shared traversal prefix.
// A panicking Compute fn is recorded as ErrXSortedListComputePanic.
func (l *xConcSortedList[K, V]) Batch(ops ...*XSortedListOp[K, V]) {
	if l == nil || len(ops) == 0 {
		return
	}

	workers := len(ops)
	if l.opts.batchWorkers > 0 && l.opts.batchWorkers < workers {
		workers = l.opts.batchWorkers
	}
	pool, err := ants.NewPool(
		workers,
		ants.WithLogger(l.antsLog),
		ants.WithPanicHandler(func(r any) {
			l.logger.Error(nil, "[x-sorted-list] batch worker panic", zap.Any("recover", r))
		}),
	)
	if err != nil {
		err = infra.WrapErrorStackWithMessage(err, "[x-sorted-list] batch pool")
		l.logger.ErrorStack(err, "[x-sorted-list] unable to start batch")
		for _, op := range ops {
			if op != nil {
				op.Err = err
			}
		}
		return
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		start = time.Now()
	)
	for _, op := range ops {
		if op == nil {
			continue
		}
		wg.Add(1)
		task := op
		if err := pool.Submit(func() {
			defer wg.Done()
			l.runOp(task)
		}); err != nil {
			task.Err = infra.WrapErrorStackWithMessage(err, "[x-sorted-list] batch submit")
			l.logger.ErrorStack(task.Err, "[x-sorted-list] batch submit failed",
				zap.String("op", task.Kind.String()),
			)
			wg.Done()
		}
	}
	wg.Wait()
	l.stats.recordBatch(time.Since(start), len(ops))
}

func (l *xConcSortedList[K, V]) runOp(op *XSortedListOp[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			op.Err = infra.WrapErrorStackWithMessage(
				ErrXSortedListComputePanic,
				fmt.Sprintf("key %v: %v", op.Key, r),
			)
			}
	}()

	switch op.Kind {
	case OpInsert:
		op.Err = l.Insert(op.Key, op.Val)
	case OpRemove:
		op.Err = l.Remove(op.Key)
	case OpContains:
		op.Found, op.Err = l.Contains(op.Key)
	case OpLoad:
		var val V
		if val, op.Err = l.Load(op.Key); op.Err == nil {
			op.Val, op.Found = val, true
		}
	case OpUpdate:
		if op.Err = l.Update(op.Key, op.Val); op.Err == nil {
			op.Found = true
		}
	case OpCompute:
		if op.Computed, op.Err = l.Compute(op.Key, op.Fn); op.Err == nil {
			op.Found = true
		}
	default:
		op.Err = ErrXSortedListInvalidArg
	}
}
