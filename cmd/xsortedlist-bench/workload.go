package main

import (
	"math/rand"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xsortedlist/lib/infra"
	"github.com/benz9527/xsortedlist/lib/list"
	"github.com/benz9527/xsortedlist/xlog"
)

type workloadReport struct {
	Inserted int64
	Found    int
	Updated  int
	Computed int
	Removed  int
	Buckets  []int64
	Elapsed  time.Duration
}

func listOptions(cfg *benchConfig, logger xlog.XLogger) []list.XSortedListOption {
	opts := []list.XSortedListOption{
		list.WithXSortedListLogger(logger),
		list.WithXSortedListCapacity(cfg.Workload.Capacity),
		list.WithXSortedListBatchWorkers(cfg.Workload.BatchWorkers),
		list.WithXSortedListStats(cfg.Name),
	}
	if strings.EqualFold(cfg.Workload.Mutex, "spin") {
		opts = append(opts, list.WithXSortedListSpinMutex())
	} else {
		opts = append(opts, list.WithXSortedListGoNativeMutex())
	}
	return opts
}

// runWorkload drives one list through the whole API: a concurrent batch
// of disjoint inserts, a verification batch, a mixed batch and a split.
// The source list is consumed by the split; the buckets are returned.
func runWorkload(
	l list.SortedList[int64, int64],
	cfg workloadConfig,
	logger xlog.XLogger,
) (*workloadReport, []list.SortedList[int64, int64], error) {
	start := time.Now()
	report := &workloadReport{}
	keys := lo.Map(rand.New(rand.NewSource(cfg.Seed)).Perm(cfg.Keys), func(k int, _ int) int64 {
		return int64(k)
	})

	inserts := lo.Map(keys, func(k int64, _ int) *list.XSortedListOp[int64, int64] {
		return list.NewInsertOp(k, k)
	})
	l.Batch(inserts...)
	if err := list.BatchErr(inserts...); err != nil {
		return nil, nil, infra.WrapErrorStackWithMessage(err, "[bench] insert batch")
	}
	size, err := l.Size()
	if err != nil {
		return nil, nil, infra.WrapErrorStackWithMessage(err, "[bench] size after inserts")
	}
	report.Inserted = size

	checks := lo.Map(keys, func(k int64, _ int) *list.XSortedListOp[int64, int64] {
		return list.NewContainsOp[int64, int64](k)
	})
	l.Batch(checks...)
	if err = list.BatchErr(checks...); err != nil {
		return nil, nil, infra.WrapErrorStackWithMessage(err, "[bench] contains batch")
	}
	report.Found = lo.CountBy(checks, func(op *list.XSortedListOp[int64, int64]) bool {
		return op.Found
	})

	mixed := lo.Map(keys, func(k int64, _ int) *list.XSortedListOp[int64, int64] {
		switch {
		case k%5 == 0:
			return list.NewRemoveOp[int64, int64](k)
		case k%2 == 0:
			return list.NewUpdateOp(k, k*10)
		default:
			return list.NewComputeOp(k, func(v int64) int { return int(v % 7) })
		}
	})
	l.Batch(mixed...)
	var merr error
	for _, op := range mixed {
		if op.Err != nil {
			merr = multierr.Append(merr, op.Err)
			continue
		}
		switch op.Kind {
		case list.OpRemove:
			report.Removed++
		case list.OpUpdate:
			report.Updated++
		case list.OpCompute:
			report.Computed++
		default:
		}
	}
	if merr != nil {
		return nil, nil, infra.WrapErrorStackWithMessage(merr, "[bench] mixed batch")
	}

	buckets, err := l.Split(cfg.Split)
	if err != nil {
		return nil, buckets, err
	}
	report.Buckets = lo.Map(buckets, func(b list.SortedList[int64, int64], _ int) int64 {
		n, _ := b.Size()
		return n
	})
	report.Elapsed = time.Since(start)
	logger.Info("[bench] workload finished",
		zap.Int64("inserted", report.Inserted),
		zap.Int("found", report.Found),
		zap.Int("updated", report.Updated),
		zap.Int("computed", report.Computed),
		zap.Int("removed", report.Removed),
		zap.Int64s("buckets", report.Buckets),
		zap.Int64("remaining", lo.Sum(report.Buckets)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, buckets, nil
}
