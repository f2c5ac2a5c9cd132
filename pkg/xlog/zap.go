package xlog

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Zap = zap.NewNop()

	EnvMode  = "development"
	EnvColor = false
)

func init() {
	if mode := os.Getenv("XLOG_MODE"); mode != "" {
		EnvMode = mode
	}

	color := os.Getenv("XLOG_COLOR")
	if color == "" && flag.Lookup("test.v") == nil {
		color = "true"
	}
	EnvColor = color != "" && color != "false" && color != "0"
}

// Init points the logger at logPath (rotated by lumberjack) and stdout.
// Every entry carries the app name.
func Init(app string, logPath string) {
	if app == "" {
		app = "hybrix"
	}
	if logPath == "" {
		logPath = filepath.Join("logs", app+".log")
	}

	Zap = NewZap(app, logPath, EnvMode != "release")
	Zap.Info("zap init succeed", FileField())
}

func NewZap(app string, logPath string, debug bool) *zap.Logger {
	rotate := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    128, // MB
		MaxAge:     30,  // days
		MaxBackups: 30,
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}

	fileEnc := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	consoleEnc := fileEnc
	consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
	if EnvColor {
		consoleEnc.EncodeLevel = colorLevelEncoder
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotate), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stdout), level),
	)

	return zap.New(core, zap.Development(), zap.Fields(zap.String("app", app)))
}

func FileField() zap.Field {
	return zap.String("file", FileWithLineNum())
}

// FileWithLineNum returns dir/file:line of the first caller outside the logging
// packages and gorm.
func FileWithLineNum() string {
	var (
		file string
		line int
	)

	for i := 1; i < 15; i++ {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.HasSuffix(f, "/pkg/xlog/xlog.go") ||
			strings.HasSuffix(f, "/pkg/xlog/zap.go") ||
			strings.Contains(f, "/pkg/model/xgorm/") ||
			strings.Contains(f, "gorm.io/gorm") {
			continue
		}
		file, line = f, l
		break
	}

	dir, name := filepath.Split(file)
	return fmt.Sprintf("%s/%s:%d", filepath.Base(dir), name, line)
}
