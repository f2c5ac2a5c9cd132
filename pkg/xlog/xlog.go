// Package xlog is the levelled printf logger used across hybrix, backed by zap.
package xlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DEBUG || l > FATAL {
		return fmt.Sprintf("Level(%d)", int32(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the full name or the usual short forms, case-insensitive.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "D", "DBG", "DEBUG":
		return DEBUG, true
	case "I", "INF", "INFO":
		return INFO, true
	case "W", "WRN", "WARN", "WARNING":
		return WARN, true
	case "E", "ERR", "ERROR":
		return ERROR, true
	case "F", "FTL", "FATAL":
		return FATAL, true
	}
	return INFO, false
}

type Logger struct {
	level atomic.Int32
}

var (
	shared     *Logger
	sharedOnce sync.Once
)

// GetLogger returns the process logger. The initial level comes from XLOG_LVL.
func GetLogger() *Logger {
	sharedOnce.Do(func() {
		shared = &Logger{}
		lvl, ok := ParseLevel(os.Getenv("XLOG_LVL"))
		if !ok {
			lvl = INFO
		}
		shared.level.Store(int32(lvl))
	})
	return shared
}

func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) SetLevel(s string) bool {
	lvl, ok := ParseLevel(s)
	if !ok {
		l.Warnf("unknown log level %q, keeping %s", s, l.Level())
		return false
	}
	l.level.Store(int32(lvl))
	l.Infof("log level set to %s", lvl)
	return true
}

func (l *Logger) enabled(lvl Level) bool {
	return lvl >= l.Level()
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled(DEBUG) {
		Zap.Debug(fmt.Sprintf(format, args...), FileField())
	}
}

func (l *Logger) Info(args ...interface{}) {
	if l.enabled(INFO) {
		Zap.Info(fmt.Sprint(args...), FileField())
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled(INFO) {
		Zap.Info(fmt.Sprintf(format, args...), FileField())
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.enabled(WARN) {
		Zap.Warn(fmt.Sprintf(format, args...), FileField())
	}
}

func (l *Logger) Error(args ...interface{}) {
	if l.enabled(ERROR) {
		Zap.Error(fmt.Sprint(args...), FileField())
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled(ERROR) {
		Zap.Error(fmt.Sprintf(format, args...), FileField())
	}
}

// Fatalf logs and exits the process.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	Zap.Fatal(fmt.Sprintf(format, args...), FileField())
	os.Exit(1)
}

// Printf lets the logger stand in for log.Logger style writers, e.g. gorm's.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Infof(format, args...)
}
