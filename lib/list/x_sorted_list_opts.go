package list

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xsortedlist/lib/infra"
	"github.com/benz9527/xsortedlist/xlog"
)

type xSortedListOptions struct {
	logger        xlog.XLogger
	meterProvider metric.MeterProvider
	statsName     string
	capacity      int64
	batchWorkers  int
	mutex         mutexEnum
	statsEnabled  bool
}

type XSortedListOption func(opts *xSortedListOptions) error

func defaultXSortedListOptions() *xSortedListOptions {
	return &xSortedListOptions{
		mutex: goNativeMutex,
	}
}

// WithXSortedListGoNativeMutex locks the nodes with sync.Mutex. It is the default.
func WithXSortedListGoNativeMutex() XSortedListOption {
	return func(opts *xSortedListOptions) error {
		opts.mutex = goNativeMutex
		return nil
	}
}

// WithXSortedListSpinMutex locks the nodes with a versioned CAS spin lock.
func WithXSortedListSpinMutex() XSortedListOption {
	return func(opts *xSortedListOptions) error {
		opts.mutex = spinLockMutex
		return nil
	}
}

// WithXSortedListCapacity bounds the number of nodes. Inserting beyond
// it fails with ErrXSortedListIsFull. Zero means unbounded.
func WithXSortedListCapacity(capacity int64) XSortedListOption {
	return func(opts *xSortedListOptions) error {
		if capacity < 0 {
			return infra.WrapErrorStackWithMessage(ErrXSortedListInvalidArg, "negative capacity")
		}
		opts.capacity = capacity
		return nil
	}
}

// WithXSortedListBatchWorkers caps the goroutines of one Batch call.
// Zero means one goroutine per op.
func WithXSortedListBatchWorkers(workers int) XSortedListOption {
	return func(opts *xSortedListOptions) error {
		if workers < 0 {
			return infra.WrapErrorStackWithMessage(ErrXSortedListInvalidArg, "negative batch workers")
		}
		opts.batchWorkers = workers
		return nil
	}
}

func WithXSortedListLogger(logger xlog.XLogger) XSortedListOption {
	return func(opts *xSortedListOptions) error {
		if logger == nil {
			return infra.WrapErrorStackWithMessage(ErrXSortedListNullArg, "nil logger")
		}
		opts.logger = logger
		return nil
	}
}

// WithXSortedListStats records the list metrics under the meter name
// "xsortedlist/<name>". The global otel MeterProvider is used unless
// another one is given.
func WithXSortedListStats(name string, provider ...metric.MeterProvider) XSortedListOption {
	return func(opts *xSortedListOptions) error {
		if len(name) == 0 {
			return infra.WrapErrorStackWithMessage(ErrXSortedListInvalidArg, "empty stats name")
		}
		opts.statsEnabled = true
		opts.statsName = name
		if len(provider) > 0 && provider[0] != nil {
			opts.meterProvider = provider[0]
		} else {
			opts.meterProvider = otel.GetMeterProvider()
		}
		return nil
	}
}
