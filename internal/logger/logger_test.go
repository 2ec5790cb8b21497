package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidConfig(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "trace", Format: "text", Output: "stdout"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestNew_FileOutput(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "logs", "ytscout.log")

	log, err := New(Config{Level: "info", Format: "json", Output: logPath})
	require.NoError(t, err)

	log.Info("hello", Field{Key: "answer", Value: 42})

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"answer":42`)
}

func TestLogger_With(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	child := log.With(Field{Key: "component", Value: "scheduler"})
	assert.NotNil(t, child)
	assert.NotEqual(t, log, child)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"debug", true},
		{"INFO", true},
		{"Warn", true},
		{"error", true},
		{"verbose", false},
		{"", false},
	}

	for _, tt := range tests {
		_, valid := parseLevel(tt.input)
		assert.Equal(t, tt.valid, valid, "level %q", tt.input)
	}
}
