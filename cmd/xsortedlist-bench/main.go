package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/benz9527/xsortedlist/lib/infra"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newCLIApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "xsortedlist-bench",
		Usage:   "Drive a concurrent sorted list through batch, split and teardown",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Commands: []*cli.Command{
			runCommand(),
		},
	}
}

// flagKeys maps the flags to their config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-encoder":   "log.encoder",
	"metrics":       "metrics.exporter",
	"metrics-addr":  "metrics.addr",
	"keys":          "workload.keys",
	"split":         "workload.split",
	"batch-workers": "workload.batchworkers",
	"capacity":      "workload.capacity",
	"mutex":         "workload.mutex",
	"seed":          "workload.seed",
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the workload once and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"XSL_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "DEBUG, INFO, WARN or ERROR"},
			&cli.StringFlag{Name: "log-encoder", Usage: "json or console"},
			&cli.StringFlag{Name: "metrics", Usage: "Metrics exporter: stdout, prometheus or none"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve /metrics on this address, e.g. :9464"},
			&cli.IntFlag{Name: "keys", Aliases: []string{"n"}, Usage: "Number of distinct keys"},
			&cli.IntFlag{Name: "split", Usage: "Number of lists to split into"},
			&cli.IntFlag{Name: "batch-workers", Usage: "Goroutines per batch, 0 means one per op"},
			&cli.Int64Flag{Name: "capacity", Usage: "List capacity, 0 means unbounded"},
			&cli.StringFlag{Name: "mutex", Usage: "Node mutex: goNative or spin"},
			&cli.Int64Flag{Name: "seed", Usage: "Key permutation seed"},
			&cli.DurationFlag{Name: "timeout", Value: time.Minute, Usage: "Start and stop timeout"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	overrides := make(map[string]any, len(flagKeys))
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}
	cfg, err := loadConfig(c.String("config"), overrides)
	if err != nil {
		return err
	}
	logger := newBenchLogger(cfg)
	res := &benchResult{}
	app := newBenchApp(cfg, logger, res)
	if err = app.Err(); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[bench] build app")
	}

	startCtx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()
	if err = app.Start(startCtx); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[bench] start app")
	}
	<-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancelStop()
	if err = app.Stop(stopCtx); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[bench] stop app")
	}
	_, err = res.load()
	return err
}
