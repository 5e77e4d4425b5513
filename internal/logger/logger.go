// Package logger provides the leveled, printf-style logging used across
// ctf-assets. It is a thin facade over a zap SugaredLogger so call sites stay
// short: logger.Info("generated %d flags", n).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity.
type Level int8

const (
	TraceLevel Level = iota - 2
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	case PanicLevel:
		return "panic"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

var (
	mu      sync.RWMutex
	level   = InfoLevel
	atom    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugared = newSugared(os.Stderr)
)

func newSugared(w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atom)
	return zap.New(core).Sugar()
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level %q (valid: trace, debug, info, warn, error, fatal, panic)", s)
	}
}

// SetLevel changes the minimum level that is emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	atom.SetLevel(toZap(l))
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sugared = newSugared(w)
}

// zap has no trace level; trace lines go out at debug with a prefix.
func toZap(l Level) zapcore.Level {
	switch l {
	case TraceLevel, DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	case PanicLevel:
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Trace(format string, args ...any) {
	if GetLevel() > TraceLevel {
		return
	}
	current().Debugf("[TRACE] "+format, args...)
}

func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

func Info(format string, args ...any) {
	current().Infof(format, args...)
}

func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

func Error(format string, args ...any) {
	current().Errorf(format, args...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}
