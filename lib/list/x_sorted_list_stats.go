package list

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	SortedListStatsName = "xsortedlist"
)

const (
	resultOK             = "ok"
	resultNotFound       = "not_found"
	resultAlreadyExists  = "already_exists"
	resultFull           = "full"
	resultDestroyPending = "destroy_pending"
	resultInvalid        = "invalid"
	resultPanic          = "panic"
	resultError          = "error"
)

var statsInstanceID atomic.Int64

func statsResultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrXSortedListNotFound):
		return resultNotFound
	case errors.Is(err, ErrXSortedListAlreadyExists):
		return resultAlreadyExists
	case errors.Is(err, ErrXSortedListIsFull):
		return resultFull
	case errors.Is(err, ErrXSortedListDestroyPending):
		return resultDestroyPending
	case errors.Is(err, ErrXSortedListNullArg), errors.Is(err, ErrXSortedListInvalidArg):
		return resultInvalid
	case errors.Is(err, ErrXSortedListComputePanic):
		return resultPanic
	default:
	}
	return resultError
}

// sortedListStats is nil if the stats are disabled. All methods
// tolerate a nil receiver.
type sortedListStats struct {
	instance       attribute.KeyValue
	opCount        metric.Int64Counter
	rejectedCount  metric.Int64Counter
	teardownCount  metric.Int64Counter
	batchDurations metric.Int64Histogram
	size           metric.Int64ObservableGauge
	sizeReg        metric.Registration
}

func (stats *sortedListStats) recordOp(kind XSortedListOpKind, err error) {
	if stats == nil {
		return
	}
	stats.opCount.Add(context.Background(), 1, metric.WithAttributes(
		stats.instance,
		attribute.String("xsl.op", kind.String()),
		attribute.String("xsl.result", statsResultOf(err)),
	))
}

func (stats *sortedListStats) recordRejected(op string) {
	if stats == nil {
		return
	}
	stats.rejectedCount.Add(context.Background(), 1, metric.WithAttributes(
		stats.instance,
		attribute.String("xsl.op", op),
	))
}

func (stats *sortedListStats) recordBatch(elapsed time.Duration, ops int) {
	if stats == nil {
		return
	}
	stats.batchDurations.Record(context.Background(), elapsed.Microseconds(), metric.WithAttributes(
		stats.instance,
		attribute.Int("xsl.batch.ops", ops),
	))
}

// recordTeardown also stops observing the size of the torn down list.
func (stats *sortedListStats) recordTeardown(kind string, nodes int64) {
	if stats == nil {
		return
	}
	stats.teardownCount.Add(context.Background(), 1, metric.WithAttributes(
		stats.instance,
		attribute.String("xsl.teardown", kind),
		attribute.Int64("xsl.teardown.nodes", nodes),
	))
	if stats.sizeReg != nil {
		_ = stats.sizeReg.Unregister()
	}
}

func newSortedListStats(name string, provider metric.MeterProvider, sizeFn func() int64) *sortedListStats {
	meter := provider.Meter(fmt.Sprintf("%s/%s", SortedListStatsName, name))
	stats := &sortedListStats{
		instance: attribute.Int64("xsl.instance", statsInstanceID.Add(1)),
		opCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xsl.op.count",
			metric.WithDescription("The number of point operations by kind and result."),
		)),
		rejectedCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xsl.rejected.count",
			metric.WithDescription("The number of entrants rejected because the list is torn down."),
		)),
		teardownCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xsl.teardown.count",
			metric.WithDescription("The number of destroy and split teardowns."),
		)),
		batchDurations: lo.Must[metric.Int64Histogram](meter.Int64Histogram(
			"xsl.batch.duration",
			metric.WithDescription("The duration of a batch from submit to the last op done. In microseconds."),
			metric.WithUnit("us"),
		)),
		size: lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"xsl.size",
			metric.WithDescription("The number of nodes in the list."),
		)),
	}
	stats.sizeReg = lo.Must[metric.Registration](meter.RegisterCallback(
		func(ctx context.Context, ob metric.Observer) error {
			ob.ObserveInt64(stats.size, sizeFn(), metric.WithAttributes(stats.instance))
			return nil
		},
		stats.size,
	))
	return stats
}
