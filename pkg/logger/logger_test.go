package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewWithLevel_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, level, err := NewWithLevel(Config{Level: "warn", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	level.SetLevel(zapcore.InfoLevel)
	log.Info("now visible")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var messages []string
	for _, line := range splitLines(data) {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		messages = append(messages, entry["msg"].(string))
	}
	assert.Equal(t, []string{"shown", "now visible"}, messages)
}

func TestNew_InvalidOutput(t *testing.T) {
	_, err := New(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "app.log")}})

	assert.Error(t, err)
}

func TestNew_Console(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "console", Development: true, OutputPaths: []string{filepath.Join(t.TempDir(), "dev.log")}})

	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
