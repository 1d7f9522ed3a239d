package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "json", &buf)

	l.Debug("hidden")
	l.Info("user registered", "user_id", "42")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "user registered", record["msg"])
	assert.Equal(t, "42", record["user_id"])
	assert.Equal(t, "INFO", record["level"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", "text", &buf)

	l.Debug("cache miss", "key", "event:1")

	out := buf.String()
	assert.Contains(t, out, "cache miss")
	assert.Contains(t, out, "key=event:1")
}
