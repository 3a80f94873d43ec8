package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the minimal logging interface used across the orchestrator.
// Messages are dotted event names (e.g. "agent.tool.executed") followed by
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// ZapAdapter wraps a zap SugaredLogger; key/value pairs map onto zap's
// loosely typed "w" methods.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter creates a Logger from *zap.Logger.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{sugar: logger.Sugar()}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Sync flushes buffered zap output.
func (z *ZapAdapter) Sync() error { return z.sugar.Sync() }

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// Config selects and tunes a logging backend.
type Config struct {
	Level   string    // debug, info, warn, error
	Format  string    // json or text
	Backend string    // slog (default), zap or none
	Output  io.Writer // slog only; defaults to os.Stderr
}

// New builds a Logger from cfg.
func New(cfg Config) (Logger, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "slog":
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level)}
		var handler slog.Handler
		if cfg.Format == "text" {
			handler = slog.NewTextHandler(out, opts)
		} else {
			handler = slog.NewJSONHandler(out, opts)
		}
		return NewSlogAdapter(slog.New(handler)), nil
	case "zap":
		zcfg := zap.NewProductionConfig()
		if cfg.Format == "text" {
			zcfg = zap.NewDevelopmentConfig()
		}
		lvl, err := zapcore.ParseLevel(orDefault(cfg.Level, "info"))
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
		zl, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("logging: build zap: %w", err)
		}
		return NewZapAdapter(zl), nil
	case "none":
		return NoOpLogger{}, nil
	default:
		return nil, fmt.Errorf("logging: unknown backend %q", cfg.Backend)
	}
}

func slogLevel(l string) slog.Level {
	switch strings.ToLower(l) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
