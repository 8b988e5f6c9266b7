package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{" Info ", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"off", LevelNone},
		{"bogus", LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in, LevelWarn))
		})
	}
}

func TestGetLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	assert.Equal(t, LevelError, GetLevelFromEnv())
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, LevelInfo, GetLevelFromEnv())
}

func TestConsoleLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(LevelNone)
	log.SetSink(&buf, LevelWarn)

	log.Info("dropped")
	log.WithPrefix("[durable]").With(map[string]interface{}{"key": "a"}).Warn("write failed: %s", "quota")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[WARN ] [durable] write failed: quota")
	assert.Contains(t, out, `{"key":"a"}`)
	assert.NotContains(t, out, "\x1b[")
}

func TestConsoleLoggerLevelEnabled(t *testing.T) {
	log := NewConsoleLogger(LevelWarn)
	assert.False(t, log.IsLevelEnabled(LevelDebug))
	assert.True(t, log.IsLevelEnabled(LevelError))
	assert.False(t, NewConsoleLogger(LevelNone).IsLevelEnabled(LevelError))
}
