package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xsortedlist/lib/list"
	"github.com/benz9527/xsortedlist/xlog"
)

func TestRunWorkload(t *testing.T) {
	testcases := []struct {
		name  string
		mutex string
	}{
		{"go native", "goNative"},
		{"spin", "spin"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			cfg := defaultBenchConfig()
			cfg.Workload.Keys = 20
			cfg.Workload.Split = 3
			cfg.Workload.Mutex = tc.mutex
			cfg.Workload.BatchWorkers = 4
			logger := xlog.NewNopXLogger()

			l, err := list.NewXConcSortedList[int64, int64](listOptions(cfg, logger)...)
			require.NoError(tt, err)
			report, buckets, err := runWorkload(l, cfg.Workload, logger)
			require.NoError(tt, err)

			require.Equal(tt, int64(20), report.Inserted)
			require.Equal(tt, 20, report.Found)
			require.Equal(tt, 4, report.Removed)
			require.Equal(tt, 8, report.Updated)
			require.Equal(tt, 8, report.Computed)
			require.Equal(tt, []int64{6, 5, 5}, report.Buckets)
			require.Len(tt, buckets, 3)

			// Remaining keys are 1..19 without multiples of 5, dealt round-robin:
			// [1 4 8 12 16 19] [2 6 9 13 17] [3 7 11 14 18]
			val, err := buckets[0].Load(4)
			require.NoError(tt, err)
			require.Equal(tt, int64(40), val)
			val, err = buckets[1].Load(2)
			require.NoError(tt, err)
			require.Equal(tt, int64(20), val)
			val, err = buckets[2].Load(3)
			require.NoError(tt, err)
			require.Equal(tt, int64(3), val)
			found, err := buckets[2].Contains(5)
			require.NoError(tt, err)
			require.False(tt, found)

			_, err = l.Size()
			require.ErrorIs(tt, err, list.ErrXSortedListDestroyPending)
			for _, b := range buckets {
				b.Destroy()
			}
		})
	}
}

func TestBenchApp(t *testing.T) {
	cfg := defaultBenchConfig()
	cfg.Workload.Keys = 50
	cfg.Workload.Split = 2
	cfg.Metrics.Addr = "127.0.0.1:0"
	logger := xlog.NewNopXLogger()
	res := &benchResult{}

	app := newBenchApp(cfg, logger, res)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	select {
	case <-app.Wait():
	case <-ctx.Done():
		t.Fatal("workload did not finish")
	}
	require.NoError(t, app.Stop(ctx))

	report, err := res.load()
	require.NoError(t, err)
	require.Equal(t, int64(50), report.Inserted)
	require.Equal(t, int64(40), report.Buckets[0]+report.Buckets[1])
}

func TestCLIApp(t *testing.T) {
	app := newCLIApp()
	require.Equal(t, "xsortedlist-bench", app.Name)
	err := app.Run([]string{"xsortedlist-bench", "run", "--keys", "16", "--split", "4", "--log-level", "ERROR"})
	require.NoError(t, err)

	err = newCLIApp().Run([]string{"xsortedlist-bench", "run", "--mutex", "rw"})
	require.Error(t, err)
}
