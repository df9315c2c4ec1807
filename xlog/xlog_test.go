package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xsortedlist/lib/infra"
)

type memSyncer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (m *memSyncer) Write(p []byte) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buf.Write(p)
}

func (m *memSyncer) Sync() error { return nil }

func (m *memSyncer) lines() []map[string]any {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := make([]map[string]any, 0, 8)
	for _, line := range strings.Split(strings.TrimSpace(m.buf.String()), "\n") {
		if len(line) == 0 {
			continue
		}
		kv := map[string]any{}
		if err := json.Unmarshal([]byte(line), &kv); err == nil {
			res = append(res, kv)
		}
	}
	return res
}

func (m *memSyncer) reset() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.buf.Reset()
}

func newMemXLogger(t *testing.T, opts ...XLoggerOption) (XLogger, *memSyncer) {
	t.Helper()
	mem := &memSyncer{}
	registerOutWriter(testMemAsOut, mem)
	opts = append([]XLoggerOption{
		withXLoggerWriter(testMemAsOut),
		WithXLoggerEncoder(JSON),
		WithXLoggerLevel(LogLevelDebug),
	}, opts...)
	return NewXLogger(opts...), mem
}

func TestXLogger_DynamicLevel(t *testing.T) {
	logger, mem := newMemXLogger(t)
	require.Equal(t, "debug", logger.Level())

	logger.Debug("visible")
	logger.IncreaseLogLevel(zapcore.WarnLevel)
	require.Equal(t, "warn", logger.Level())
	logger.Debug("invisible")
	logger.Info("invisible")
	logger.Warn("visible warn", zap.Int("n", 1))
	require.NoError(t, logger.Sync())

	lines := mem.lines()
	require.Len(t, lines, 2)
	require.Equal(t, "visible", lines[0]["msg"])
	require.Equal(t, "DEBUG", lines[0]["lvl"])
	require.Equal(t, "visible warn", lines[1]["msg"])
	require.Equal(t, float64(1), lines[1]["n"])
	require.Contains(t, lines[1]["callAt"], "xlog_test.go")
}

func TestXLogger_Errors(t *testing.T) {
	logger, mem := newMemXLogger(t)

	logger.Error(errors.New("plain"), "failed")
	logger.Error(nil, "failed without error")
	logger.ErrorStack(infra.NewErrorStack("stacked"), "failed with stack")
	logger.ErrorStack(errors.New("no stack"), "failed without stack")
	logger.Logf(zapcore.ErrorLevel, "formatted %d", 42)

	lines := mem.lines()
	require.Len(t, lines, 5)
	require.Equal(t, "plain", lines[0]["error"])
	_, ok := lines[1]["error"]
	require.False(t, ok)
	require.Equal(t, "stacked", lines[2]["error"])
	stack, ok := lines[2]["errorStack"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, stack)
	require.Equal(t, "no stack", lines[3]["error"])
	require.Equal(t, "formatted 42", lines[4]["msg"])
}

func TestXLogger_ContextFields(t *testing.T) {
	logger, mem := newMemXLogger(t,
		WithXLoggerContextFieldExtract("traceId"),
		WithXLoggerContextFieldExtract("reqId", "requestId"),
		WithXLoggerContextFieldExtract("secret", ContextKeyMapToOmitempty),
		WithXLoggerContextFieldExtract(""),
	)

	//nolint:staticcheck
	ctx := context.WithValue(context.Background(), "traceId", "t-1")
	//nolint:staticcheck
	ctx = context.WithValue(ctx, "secret", "s")

	logger.DebugContext(ctx, "debug")
	logger.InfoContext(ctx, "info")
	logger.WarnContext(ctx, "warn")
	logger.ErrorContext(ctx, errors.New("boom"), "error")

	lines := mem.lines()
	require.Len(t, lines, 4)
	for _, line := range lines {
		require.Equal(t, "t-1", line["traceId"])
		require.Equal(t, "nil", line["requestId"])
		_, ok := line["secret"]
		require.False(t, ok)
	}
	require.Equal(t, "boom", lines[3]["error"])
}

func TestXLogger_InvalidOptions(t *testing.T) {
	require.Panics(t, func() {
		NewXLogger(WithXLoggerEncoder(_encMax))
	})
	require.Panics(t, func() {
		NewXLogger(withXLoggerWriter(_writerMax))
	})
	require.NotPanics(t, func() {
		l := NewXLogger(nil, WithXLoggerLevelEncoder(nil), WithXLoggerTimeEncoder(nil))
		require.NotNil(t, l)
	})
}

func TestNopXLogger(t *testing.T) {
	logger := NewNopXLogger()
	require.NotPanics(t, func() {
		logger.Debug("nothing")
		logger.ErrorStack(infra.NewErrorStack("nothing"), "nothing")
		logger.InfoContext(context.Background(), "nothing")
		logger.Logf(zapcore.ErrorLevel, "nothing %d", 1)
	})
	require.NoError(t, logger.Sync())

	ants := NewAntsXLogger(logger)
	require.NotPanics(t, func() {
		ants.Printf("nothing %s", "at all")
	})
}

func TestParseLogLevelAndEncoder(t *testing.T) {
	testcases := []struct {
		in  string
		out logLevel
	}{
		{"", LogLevelDebug},
		{"info", LogLevelInfo},
		{" WARN ", LogLevelWarn},
		{"Error", LogLevelError},
		{"trace", LogLevelDebug},
	}
	for _, tc := range testcases {
		require.Equal(t, tc.out, ParseLogLevel(tc.in))
	}

	enc, ok := ParseLogEncoder("json")
	require.True(t, ok)
	require.Equal(t, JSON, enc)
	enc, ok = ParseLogEncoder("console")
	require.True(t, ok)
	require.Equal(t, PlainText, enc)
	_, ok = ParseLogEncoder("xml")
	require.False(t, ok)
}

func TestWrapCore_Nil(t *testing.T) {
	cc, err := WrapCore(nil, componentCoreEncoderCfg)
	require.Error(t, err)
	require.Nil(t, cc)
}
