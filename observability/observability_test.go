package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseMetricsExporterKind(t *testing.T) {
	testcases := []struct {
		name    string
		in      string
		out     MetricsExporterKind
		wantErr bool
	}{
		{"stdout", "stdout", StdoutMetricsExporter, false},
		{"prometheus upper", " Prometheus ", PrometheusMetricsExporter, false},
		{"none", "none", NoneMetricsExporter, false},
		{"blank", "", NoneMetricsExporter, false},
		{"unknown", "statsd", "", true},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			kind, err := ParseMetricsExporterKind(tc.in)
			if tc.wantErr {
				require.Error(tt, err)
				return
			}
			require.NoError(tt, err)
			require.Equal(tt, tc.out, kind)
		})
	}
}

func TestNewMetricsExporter_None(t *testing.T) {
	shutdown, err := NewMetricsExporter(NoneMetricsExporter, 0)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = NewMetricsExporter(MetricsExporterKind("statsd"), 0)
	require.Error(t, err)
}

func TestConsoleMetricsExporter(t *testing.T) {
	buf := &bytes.Buffer{}
	shutdown, err := newConsoleMetricsExporter(time.Hour, time.Second, stdoutmetric.WithWriter(buf))
	require.NoError(t, err)

	counter, err := otel.Meter("xsortedlist/test").Int64Counter("xsl.console.sample")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// Shutdown flushes the periodic reader.
	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, buf.String(), "xsl.console.sample")
}

func TestPrometheusMetricsExporter(t *testing.T) {
	shutdown, err := NewMetricsExporter(PrometheusMetricsExporter, 0)
	require.NoError(t, err)
	defer func() {
		_ = shutdown(context.Background())
	}()

	counter, err := otel.Meter("xsortedlist/test").Int64Counter("xsl.prom.sample")
	require.NoError(t, err)
	counter.Add(context.Background(), 5)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "xsl_prom_sample") {
			found = true
			require.NotEmpty(t, mf.GetMetric())
			require.Equal(t, float64(5), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, found)
}

func TestInitAppStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	require.NoError(t, InitAppStats("bench"))
	require.NoError(t, InitAppStats("ignored"))
	require.NotNil(t, runningStats)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[sm.Scope.Name+"#"+m.Name] = true
		}
	}
	require.True(t, names["xsortedlist/app/bench#app.core.goroutines"])
	require.True(t, names["xsortedlist/app/bench#app.core.processes"])
	require.Equal(t, "xsortedlist/app/default", appMeterName(" "))
}
