// Package logging builds the process zap logger and adapts it to the
// service logging interface.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"crisprcatalog/internal/core"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger at level ("debug", "info", "warn", "error") in the
// given format. JSON uses the production encoder, console the development one.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewWriter returns a JSON logger writing to w. The shell command uses it
// for --log-file so log lines stay off the terminal it draws on.
func NewWriter(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// Service adapts logger to core.Logger. Key/value arguments become zap fields.
func Service(logger *zap.Logger) core.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return serviceLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

type serviceLogger struct {
	sugar *zap.SugaredLogger
}

func (l serviceLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l serviceLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l serviceLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l serviceLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Audit returns an AuditRecorder that writes one "audit" line per entry.
func Audit(logger *zap.Logger) core.AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return auditLogger{logger: logger.Named("audit")}
}

type auditLogger struct {
	logger *zap.Logger
}

func (a auditLogger) Record(_ context.Context, e core.AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", e.Operation),
		zap.String("status", string(e.Status)),
		zap.String("entity", e.Entity),
		zap.Int("warnings", e.Warnings),
		zap.Duration("duration", e.Duration),
		zap.Time("recorded_at", e.RecordedAt),
	}
	if e.EntityID != "" {
		fields = append(fields, zap.String("entity_id", e.EntityID))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
		a.logger.Warn("audit", fields...)
		return
	}
	a.logger.Info("audit", fields...)
}
