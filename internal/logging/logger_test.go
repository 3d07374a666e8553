package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestJSONLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithSink(Config{Level: "WARN", Format: "json"}, zapcore.AddSync(&buf))

	logger.Info("hidden")
	logger.Warn("shown", zap.String("task_id", "task-picking"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "WARN", entry["level"])
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "task-picking", entry["task_id"])
	require.Contains(t, entry, "caller")
}

func TestTextEncodingInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithSink(Config{Level: "debug", Format: "json", Development: true}, zapcore.AddSync(&buf))

	logger.Debug("tick")
	require.NoError(t, logger.Sync())
	require.Contains(t, buf.String(), "tick")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseZapLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseZapLevel("debug"))
	require.Equal(t, zapcore.ErrorLevel, parseZapLevel("ERROR"))
	require.Equal(t, zapcore.InfoLevel, parseZapLevel("verbose"))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockd.log")
	logger, flush, err := New(Config{Level: "INFO", Format: "json", OutputPath: path})
	require.NoError(t, err)

	logger.Info("clocked in")
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "clocked in")
}
