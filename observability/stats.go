package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xsortedlist/lib/infra"
)

var (
	once         sync.Once
	runningStats *appStats
)

type appStats struct {
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
}

func appMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString("xsortedlist/app/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(strings.TrimSpace(name))
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats observes the goroutines and GOMAXPROCS of the process and
// starts the otel runtime instrumentation on the global MeterProvider.
// Only the first call has any effect.
func InitAppStats(name string) (err error) {
	once.Do(func() {
		meter := otel.Meter(
			appMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		runningStats = &appStats{
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
		}
		if e := otelruntime.Start(otelruntime.WithMeterProvider(otel.GetMeterProvider())); e != nil {
			err = infra.WrapErrorStackWithMessage(e, "[observability] runtime instrumentation")
		}
	})
	return err
}
