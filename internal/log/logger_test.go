package log

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewWithZap(zap.New(core)), logs
}

func TestLogger_Levels(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "normalized", String("model", "gpt-oss:20b"), Int("tool_calls", 1))
	logger.Warn(ctx, "repaired arguments", Bool("repaired", true))
	logger.Error(ctx, "failed", Cause(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "normalized", entries[0].Message)
	assert.Equal(t, "gpt-oss:20b", entries[0].ContextMap()["model"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["tool_calls"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestLogger_Hooks(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	type key struct{}

	logger.AddHook(HookFunc(func(ctx context.Context, msg string, fields ...Field) []Field {
		if v, ok := ctx.Value(key{}).(string); ok {
			fields = append(fields, String("request", v))
		}

		return fields
	}))

	logger.Debug(context.WithValue(context.Background(), key{}, "r-1"), "with value")
	logger.Debug(context.Background(), "without value")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "r-1", entries[0].ContextMap()["request"])
	assert.NotContains(t, entries[1].ContextMap(), "request")
}

func TestLogger_HooksSkippedWhenLevelDisabled(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.ErrorLevel)

	called := false

	logger.AddHook(HookFunc(func(ctx context.Context, msg string, fields ...Field) []Field {
		called = true
		return fields
	}))

	logger.Info(context.Background(), "ignored")

	assert.False(t, called)
	assert.Zero(t, logs.Len())
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	logger, logs := newObservedLogger(zapcore.DebugLevel)
	SetGlobalLogger(logger)

	Debug(context.Background(), "debug")
	Info(context.Background(), "info")
	Warn(context.Background(), "warn")
	Error(context.Background(), "error")

	assert.Equal(t, 4, logs.Len())
}

func TestLogger_Caller(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip)))
	SetGlobalLogger(logger)

	logger.Info(context.Background(), "method")
	Info(context.Background(), "package")

	entries := logs.All()
	require.Len(t, entries, 2)

	for _, entry := range entries {
		require.True(t, entry.Caller.Defined, entry.Message)
		assert.Equal(t, "logger_test.go", filepath.Base(entry.Caller.File), entry.Message)
	}

	assert.Equal(t, entries[0].Caller.Line+1, entries[1].Caller.Line)
}

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		logger, err := New(DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("file output", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output = "file"
		cfg.Encoding = "console"
		cfg.File.Path = filepath.Join(t.TempDir(), "bridge.log")

		logger, err := New(cfg)
		require.NoError(t, err)
		logger.Info(context.Background(), "to file")
	})

	t.Run("invalid level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Level = "verbose"

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Encoding = "xml"

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("invalid output", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output = "syslog"

		_, err := New(cfg)
		require.Error(t, err)
	})
}

func TestLevel_Valid(t *testing.T) {
	assert.True(t, DebugLevel.Valid())
	assert.True(t, Level("WARN").Valid())
	assert.True(t, Level("").Valid())
	assert.False(t, Level("trace").Valid())
}
