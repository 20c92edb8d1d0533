package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	logger, err := New("json", zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("New(json) error: %v", err)
	}
	logger.Info("test message")
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info level enabled")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level disabled")
	}
}

func TestNewConsole(t *testing.T) {
	logger, err := New("console", zapcore.DebugLevel)
	if err != nil {
		t.Fatalf("New(console) error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level enabled")
	}
}
