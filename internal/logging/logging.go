package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. format is "json" or "console"; anything else
// defaults to console. The logger writes to stderr so it never mixes with
// NDJSON record output on stdout.
func New(format string, level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.ToLower(format) != "json" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a
// zapcore.Level. Unknown strings default to InfoLevel.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
