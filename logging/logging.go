// Package logging provides the Logger used across the service, backed by
// go.uber.org/zap.
package logging

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, field-aware logger consumed by every package in
// this module.
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Warn(msg string)
	Warnf(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)
}

// Format selects the zap encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a zap logger for the given level (debug, info, warn, error) and
// format. The caller owns the returned logger and should Sync it on exit.
func New(level string, format Format) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config

	switch format {
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

// FromZap adapts a zap logger to Logger. A nil logger yields Nop.
//
//nolint:ireturn
func FromZap(l *zap.Logger) Logger {
	if l == nil {
		return Nop()
	}

	return &zapLogger{s: l.Sugar()}
}

// Nop returns a Logger that discards everything.
//
//nolint:ireturn
func Nop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

//nolint:ireturn
func (l *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{s: l.s.With(key, value)}
}

//nolint:ireturn
func (l *zapLogger) WithFields(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	return &zapLogger{s: l.s.With(args...)}
}

func (l *zapLogger) Debug(msg string)                  { l.s.Debug(msg) }
func (l *zapLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Info(msg string)                   { l.s.Info(msg) }
func (l *zapLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Warn(msg string)                   { l.s.Warn(msg) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *zapLogger) Error(msg string)                  { l.s.Error(msg) }
func (l *zapLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
