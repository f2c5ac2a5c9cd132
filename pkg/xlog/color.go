package xlog

import "go.uber.org/zap/zapcore"

const (
	colorReset = "\033[0m"
	colorDebug = "\033[1;36m"
	colorWarn  = "\033[1;33m"
	colorError = "\033[1;31m"
)

// colorLevelEncoder leaves info uncoloured so routine lines stay quiet.
func colorLevelEncoder(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch {
	case lvl == zapcore.DebugLevel:
		color = colorDebug
	case lvl == zapcore.WarnLevel:
		color = colorWarn
	case lvl >= zapcore.ErrorLevel:
		color = colorError
	}
	if color == "" {
		enc.AppendString(lvl.CapitalString())
		return
	}
	enc.AppendString(color + lvl.CapitalString() + colorReset)
}
