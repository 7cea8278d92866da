package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/coldbell/clone-actions/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for raw, want := range cases {
		got, err := parseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseLevel("verbose")
	require.Error(t, err)
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	handler, err := newHandler(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)

	slog.New(handler).Info("tx prepared", "pool_index", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "tx prepared", line["msg"])
	assert.EqualValues(t, 3, line["pool_index"])
}

func TestNewHandlerRejectsUnknownFormat(t *testing.T) {
	_, err := newHandler(&bytes.Buffer{}, "xml", slog.LevelInfo)
	require.Error(t, err)
}

func TestOpenWriterBothWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "nested", "actions.log")

	writer, closeWriter, err := openWriter("actions-server", config.LogConfig{
		Output:    "both",
		FilePath:  logPath,
		MaxSizeMB: 1,
	}, &console)
	require.NoError(t, err)

	_, err = writer.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, closeWriter())

	assert.Equal(t, "hello\n", console.String())
	body, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(body))
}

func TestOpenWriterRejectsUnknownOutput(t *testing.T) {
	_, _, err := openWriter("actions-server", config.LogConfig{Output: "syslog"}, &bytes.Buffer{})
	require.Error(t, err)
}
