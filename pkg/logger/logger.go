package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger used across the service, backed by zap.
// Init(level) sets the threshold; the *f helpers format like fmt.Printf and
// L() exposes the structured logger for call sites that attach fields.

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = zap.New(consoleCore(zapcore.Lock(os.Stdout)))
	sugar = base.Sugar()
)

func consoleCore(w zapcore.WriteSyncer) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level)
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values fall back to info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}

// Enabled reports whether messages at lvl are currently emitted.
func Enabled(lvl zapcore.Level) bool { return level.Enabled(lvl) }

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Replace swaps the output core and returns a func restoring the previous one.
// The global level still applies. Used by tests to capture output.
func Replace(core zapcore.Core) (restore func()) {
	mu.Lock()
	prevBase, prevSugar := base, sugar
	base = zap.New(levelFiltered{Core: core})
	sugar = base.Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		base, sugar = prevBase, prevSugar
		mu.Unlock()
	}
}

type levelFiltered struct {
	zapcore.Core
}

func (c levelFiltered) Enabled(lvl zapcore.Level) bool {
	return level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c levelFiltered) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !level.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c levelFiltered) With(fields []zapcore.Field) zapcore.Core {
	return levelFiltered{Core: c.Core.With(fields)}
}

func Debugf(format string, v ...interface{}) { s().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { s().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { s().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { s().Errorf(format, v...) }
func Fatalf(format string, v ...interface{}) { s().Fatalf(format, v...) }

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { s().Debug(v) }
func Info(v string)  { s().Info(v) }
func Warn(v string)  { s().Warn(v) }
func Error(v string) { s().Error(v) }

// Sync flushes buffered output.
func Sync() { _ = L().Sync() }
