package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the textual log level, it decodes from config strings.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	PanicLevel Level = "panic"
	FatalLevel Level = "fatal"
)

func (l Level) zapLevel() (zapcore.Level, error) {
	switch Level(strings.ToLower(string(l))) {
	case DebugLevel:
		return zapcore.DebugLevel, nil
	case InfoLevel, "":
		return zapcore.InfoLevel, nil
	case WarnLevel, "warning":
		return zapcore.WarnLevel, nil
	case ErrorLevel:
		return zapcore.ErrorLevel, nil
	case PanicLevel:
		return zapcore.PanicLevel, nil
	case FatalLevel:
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", l)
	}
}

// Valid reports whether the level is a known level.
func (l Level) Valid() bool {
	_, err := l.zapLevel()
	return err == nil
}
