package loghandler

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeFormat = "2006/01/02 15:04:05"

// CompactEncoderConfig writes logs in a compact form: timestamp, optional
// [name] prefix from Logger.Named, message, then fields. No level is written.
func CompactEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "T",
		NameKey:          "N",
		MessageKey:       "M",
		StacktraceKey:    "S",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       encodeName,
		ConsoleSeparator: " ",
	}
}

func encodeName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewCompact returns a logger that writes the compact format to w.
func NewCompact(w io.Writer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(CompactEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

// New builds the process logger: "console" is the compact layout on stderr,
// "json" is zap's production encoder.
func New(level, format string) (*zap.Logger, error) {
	lvl := ParseLevel(level)
	switch format {
	case "", "console":
		return NewCompact(os.Stderr, lvl), nil
	case "json":
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		return cfg.Build()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
