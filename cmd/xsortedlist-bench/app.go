package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/benz9527/xsortedlist/lib/infra"
	"github.com/benz9527/xsortedlist/lib/list"
	"github.com/benz9527/xsortedlist/observability"
	"github.com/benz9527/xsortedlist/xlog"
)

func newBenchLogger(cfg *benchConfig) xlog.XLogger {
	enc, _ := xlog.ParseLogEncoder(cfg.Log.Encoder)
	return xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Log.Level)),
	)
}

func newMetricsExporter(lc fx.Lifecycle, cfg *benchConfig, logger xlog.XLogger) (observability.ShutdownFunc, error) {
	kind, err := observability.ParseMetricsExporterKind(cfg.Metrics.Exporter)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.NewMetricsExporter(kind, cfg.Metrics.Interval)
	if err != nil {
		return nil, err
	}
	if err = observability.InitAppStats(cfg.Name); err != nil {
		logger.ErrorStack(err, "[bench] app stats disabled")
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return shutdown, nil
}

func newMetricsServer(lc fx.Lifecycle, cfg *benchConfig, logger xlog.XLogger) *http.Server {
	if cfg.Metrics.Addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return infra.WrapErrorStackWithMessage(err, "[bench] metrics listen")
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "[bench] metrics server stopped")
				}
			}()
			logger.Info("[bench] metrics server started", zap.String("addr", ln.Addr().String()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

// newSortedList depends on the exporter so the list stats bind to the
// installed MeterProvider.
func newSortedList(
	cfg *benchConfig,
	logger xlog.XLogger,
	_ observability.ShutdownFunc,
) (list.SortedList[int64, int64], error) {
	return list.NewXConcSortedList[int64, int64](listOptions(cfg, logger)...)
}

type benchResult struct {
	lock   sync.Mutex
	report *workloadReport
	err    error
}

func (res *benchResult) store(report *workloadReport, err error) {
	res.lock.Lock()
	defer res.lock.Unlock()
	res.report, res.err = report, err
}

func (res *benchResult) load() (*workloadReport, error) {
	res.lock.Lock()
	defer res.lock.Unlock()
	return res.report, res.err
}

func registerWorkload(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *benchConfig,
	logger xlog.XLogger,
	l list.SortedList[int64, int64],
	res *benchResult,
	_ *http.Server,
) {
	var (
		lock    sync.Mutex
		buckets []list.SortedList[int64, int64]
	)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				report, lists, err := runWorkload(l, cfg.Workload, logger)
				if err != nil {
					logger.ErrorStack(err, "[bench] workload failed")
				}
				res.store(report, err)
				lock.Lock()
				buckets = lists
				lock.Unlock()
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Interrupted workloads see ErrXSortedListDestroyPending.
			l.Destroy()
			lock.Lock()
			defer lock.Unlock()
			for _, b := range buckets {
				b.Destroy()
			}
			_ = logger.Sync()
			return nil
		},
	})
}

func newBenchApp(cfg *benchConfig, logger xlog.XLogger, res *benchResult) *fx.App {
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Supply(cfg, res),
		fx.Provide(
			func() xlog.XLogger { return logger },
			newMetricsExporter,
			newMetricsServer,
			newSortedList,
		),
		fx.Invoke(registerWorkload),
	)
}
