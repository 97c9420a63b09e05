package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the process logger is built.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Service string
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New builds a zap logger tagged with the service name.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(opts.Format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	service := opts.Service
	if service == "" {
		service = "default"
	}
	return l.With(zap.String("service", service)), nil
}

// SetGlobal replaces the logger used by the printf helpers.
func SetGlobal(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Infof(format string, args ...any) {
	L().Info(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	L().Warn(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	L().Error(fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...any) {
	L().Fatal(fmt.Sprintf(format, args...))
}

// Sync flushes buffered entries; the error from stderr sync is ignored.
func Sync() {
	_ = L().Sync()
}
