package library

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshokin/songbook-offline/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger routes gorm messages into the application logger.
type GormLogger struct {
	level gormlogger.LogLevel
}

// NewGormLogger creates a GormLogger that reports warnings and errors.
func NewGormLogger() *GormLogger {
	return &GormLogger{level: gormlogger.Warn}
}

// LogMode implements gormlogger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{level: level}
}

// Info implements gormlogger.Interface.
func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logger.Debugf(ctx, msg, args...)
	}
}

// Warn implements gormlogger.Interface.
func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logger.Warnf(ctx, msg, args...)
	}
}

// Error implements gormlogger.Interface.
func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logger.Errorf(ctx, msg, args...)
	}
}

// Trace implements gormlogger.Interface. Queries are logged at debug level, failures and slow queries at warn.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, context.Canceled):
		sql, rows := fc()
		logger.WarnKV(ctx, "Database query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		logger.WarnKV(ctx, "Slow database query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case logger.IsDebugLevel():
		sql, rows := fc()
		logger.DebugKV(ctx, "Database query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
