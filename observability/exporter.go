package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xsortedlist/lib/infra"
)

type MetricsExporterKind string

const (
	StdoutMetricsExporter     MetricsExporterKind = "stdout"
	PrometheusMetricsExporter MetricsExporterKind = "prometheus"
	NoneMetricsExporter       MetricsExporterKind = "none"
)

func ParseMetricsExporterKind(kind string) (MetricsExporterKind, error) {
	switch k := MetricsExporterKind(strings.ToLower(strings.TrimSpace(kind))); k {
	case StdoutMetricsExporter, PrometheusMetricsExporter, NoneMetricsExporter:
		return k, nil
	case "":
		return NoneMetricsExporter, nil
	default:
	}
	return "", infra.NewErrorStack("[observability] unknown metrics exporter " + kind)
}

// ShutdownFunc flushes and stops the installed MeterProvider.
type ShutdownFunc func(ctx context.Context) error

func nopShutdown(context.Context) error { return nil }

// NewMetricsExporter installs the global otel MeterProvider of the kind.
// The prometheus kind registers into the default prometheus registerer,
// so the promhttp default handler serves it.
func NewMetricsExporter(kind MetricsExporterKind, interval time.Duration) (ShutdownFunc, error) {
	switch kind {
	case StdoutMetricsExporter:
		if interval <= 0 {
			interval = 10 * time.Second
		}
		return newConsoleMetricsExporter(interval, interval, stdoutmetric.WithPrettyPrint())
	case PrometheusMetricsExporter:
		return newPrometheusMetricsExporter()
	case NoneMetricsExporter:
		return nopShutdown, nil
	default:
	}
	return nil, infra.NewErrorStack("[observability] unknown metrics exporter " + string(kind))
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownFunc, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] stdout exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter() (ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] prometheus exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
