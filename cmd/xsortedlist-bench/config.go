package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/benz9527/xsortedlist/lib/infra"
	"github.com/benz9527/xsortedlist/observability"
	"github.com/benz9527/xsortedlist/xlog"
)

const envPrefix = "XSL_"

type logConfig struct {
	Level   string `koanf:"level"`
	Encoder string `koanf:"encoder"`
}

type metricsConfig struct {
	Exporter string        `koanf:"exporter"`
	Addr     string        `koanf:"addr"`
	Interval time.Duration `koanf:"interval"`
}

type workloadConfig struct {
	Keys         int    `koanf:"keys"`
	Split        int    `koanf:"split"`
	BatchWorkers int    `koanf:"batchworkers"`
	Capacity     int64  `koanf:"capacity"`
	Mutex        string `koanf:"mutex"`
	Seed         int64  `koanf:"seed"`
}

type benchConfig struct {
	Name     string         `koanf:"name"`
	Log      logConfig      `koanf:"log"`
	Metrics  metricsConfig  `koanf:"metrics"`
	Workload workloadConfig `koanf:"workload"`
}

func defaultBenchConfig() *benchConfig {
	return &benchConfig{
		Name: "xsortedlist-bench",
		Log: logConfig{
			Level:   "INFO",
			Encoder: "json",
		},
		Metrics: metricsConfig{
			Exporter: string(observability.NoneMetricsExporter),
			Interval: 10 * time.Second,
		},
		Workload: workloadConfig{
			Keys:  1024,
			Split: 4,
			Mutex: "goNative",
			Seed:  1,
		},
	}
}

func (cfg *benchConfig) validate() error {
	if _, ok := xlog.ParseLogEncoder(cfg.Log.Encoder); !ok {
		return infra.NewErrorStack("[bench] unknown log encoder " + cfg.Log.Encoder)
	}
	if _, err := observability.ParseMetricsExporterKind(cfg.Metrics.Exporter); err != nil {
		return err
	}
	if cfg.Workload.Keys <= 0 {
		return infra.NewErrorStack("[bench] workload keys must be positive")
	}
	if cfg.Workload.Split <= 0 {
		return infra.NewErrorStack("[bench] workload split must be positive")
	}
	if cfg.Workload.Capacity > 0 && cfg.Workload.Capacity < int64(cfg.Workload.Keys) {
		return infra.NewErrorStack("[bench] workload capacity is less than keys")
	}
	switch strings.ToLower(cfg.Workload.Mutex) {
	case "gonative", "spin":
	default:
		return infra.NewErrorStack("[bench] unknown mutex " + cfg.Workload.Mutex)
	}
	return nil
}

// loadConfig layers the YAML file, then XSL_ environment variables and
// then the explicitly set flags over the defaults.
// XSL_WORKLOAD_KEYS=10 maps to workload.keys.
func loadConfig(path string, overrides map[string]any) (*benchConfig, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[bench] load config file "+path)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[bench] load env")
	}
	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[bench] set "+key)
		}
	}

	cfg := defaultBenchConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[bench] unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
