package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText("info", &buf)
	if logger == nil {
		t.Fatal("Expected text logger to be created")
	}

	logger.Info("round advanced")
	if !strings.Contains(buf.String(), "round advanced") {
		t.Errorf("Expected log output to contain 'round advanced', got: %s", buf.String())
	}
}

func TestNewWithFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithFormat("info", "json", &buf).Info("hello", "session_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["session_id"] != "abc" {
		t.Errorf("expected session_id abc, got %v", entry["session_id"])
	}

	buf.Reset()
	NewWithFormat("info", "TEXT", &buf).Info("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Info when warn level", "warn", Info, "info message", false},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Error when error level", "error", Error, "error message", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.logLevel, &buf))

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output to contain '%s', got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output NOT to contain '%s', but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	With("session_id", "s-1").Info("session created")

	output := buf.String()
	if !strings.Contains(output, "session_id") || !strings.Contains(output, "s-1") {
		t.Errorf("Expected session attributes in output, got: %s", output)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf).With("component", "advisor")
	ctx := NewContext(context.Background(), l)

	FromContext(ctx).Info("from context")
	if !strings.Contains(buf.String(), "advisor") {
		t.Errorf("expected context logger to be used, got: %s", buf.String())
	}

	if FromContext(context.Background()) != Default {
		t.Errorf("expected Default for a context without logger")
	}
}
