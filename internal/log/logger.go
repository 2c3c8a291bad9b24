package log

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// callerSkip skips the exported logging method and Logger.log.
const callerSkip = 2

// Logger wraps a zap logger and applies hooks before writing an entry.
type Logger struct {
	logger *zap.Logger

	mu    sync.RWMutex
	hooks []Hook
}

// New creates a Logger from the config.
func New(cfg Config) (*Logger, error) {
	level, err := cfg.Level.zapLevel()
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.LevelKey != "" {
		encoderConfig.LevelKey = cfg.LevelKey
	}

	if cfg.TimeKey != "" {
		encoderConfig.TimeKey = cfg.TimeKey
	}

	if cfg.CallerKey != "" {
		encoderConfig.CallerKey = cfg.CallerKey
	}

	var encoder zapcore.Encoder

	switch cfg.Encoding {
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json", "":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log encoding: %s", cfg.Encoding)
	}

	var writer zapcore.WriteSyncer

	switch cfg.Output {
	case "file":
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			LocalTime:  cfg.File.LocalTime,
		})
	case "stdio", "":
		// stdout carries the command output, keep logs apart.
		writer = zapcore.Lock(os.Stderr)
	default:
		return nil, fmt.Errorf("unknown log output: %s", cfg.Output)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(callerSkip)}
	if cfg.Debug {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	zl := zap.New(zapcore.NewCore(encoder, writer, zap.NewAtomicLevelAt(level)), opts...)
	if cfg.Name != "" {
		zl = zl.Named(cfg.Name)
	}

	return &Logger{logger: zl}, nil
}

// NewWithZap wraps an existing zap logger, mostly useful in tests.
// Callers wanting accurate caller info add zap.AddCallerSkip(2) themselves.
func NewWithZap(zl *zap.Logger) *Logger {
	return &Logger{logger: zl}
}

// AddHook registers a hook applied to every entry.
func (l *Logger) AddHook(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hooks = append(l.hooks, hook)
}

func (l *Logger) applyHooks(ctx context.Context, msg string, fields []Field) []Field {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, hook := range l.hooks {
		fields = hook.Apply(ctx, msg, fields...)
	}

	return fields
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields ...Field) {
	if !l.logger.Core().Enabled(level) {
		return
	}

	fields = l.applyHooks(ctx, msg, fields)

	if ce := l.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}

var (
	globalMu     sync.RWMutex
	globalLogger = mustDefault()
)

func mustDefault() *Logger {
	l, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}

	return l
}

// SetGlobalLogger replaces the logger used by the package level functions.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalLogger = l
}

// GetGlobalLogger returns the logger used by the package level functions.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return globalLogger
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().log(ctx, zapcore.DebugLevel, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().log(ctx, zapcore.InfoLevel, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().log(ctx, zapcore.WarnLevel, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().log(ctx, zapcore.ErrorLevel, msg, fields...)
}
