// Package xgorm routes gorm's logging through xlog.
package xgorm

import (
	"context"
	"errors"
	"time"

	"hybrix/pkg/xlog"

	gl "gorm.io/gorm/logger"
)

var zapLogger = xlog.GetLogger()

type logger struct {
	level         gl.LogLevel
	slowThreshold time.Duration
}

// New returns a gorm logger at level. Queries slower than slow are warned;
// record-not-found errors are never logged.
func New(level gl.LogLevel, slow time.Duration) gl.Interface {
	return &logger{level: level, slowThreshold: slow}
}

func (l *logger) LogMode(level gl.LogLevel) gl.Interface {
	nl := *l
	nl.level = level
	return &nl
}

func (l *logger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gl.Info {
		zapLogger.Infof("gorm: "+msg, data...)
	}
}

func (l *logger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gl.Warn {
		zapLogger.Warnf("gorm: "+msg, data...)
	}
}

func (l *logger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gl.Error {
		zapLogger.Errorf("gorm: "+msg, data...)
	}
}

func (l *logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gl.Silent {
		return
	}

	elapsed := float64(time.Since(begin).Nanoseconds()) / 1e6
	switch {
	case err != nil && l.level >= gl.Error && !errors.Is(err, gl.ErrRecordNotFound):
		sql, rows := fc()
		zapLogger.Errorf("gorm: %s [%.3fms] [rows:%d] %s", err, elapsed, rows, sql)
	case l.slowThreshold != 0 && time.Since(begin) > l.slowThreshold && l.level >= gl.Warn:
		sql, rows := fc()
		zapLogger.Warnf("gorm: SLOW SQL >= %v [%.3fms] [rows:%d] %s", l.slowThreshold, elapsed, rows, sql)
	case l.level >= gl.Info:
		sql, rows := fc()
		zapLogger.Debugf("gorm: [%.3fms] [rows:%d] %s", elapsed, rows, sql)
	}
}
