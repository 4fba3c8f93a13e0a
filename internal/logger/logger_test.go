package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" Warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), "parseLevel(%q)", tt.input)
	}
}

func TestDailyWriter_SwitchesFileAtMidnight(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyWriter(dir, "bot.log")
	require.NoError(t, err)
	defer w.Close()

	day1 := time.Date(2026, 3, 31, 23, 59, 0, 0, time.Local)
	w.now = func() time.Time { return day1 }
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	w.now = func() time.Time { return day1.Add(2 * time.Minute) }
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	first, err := os.ReadFile(filepath.Join(dir, "bot.log.2026-03-31"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "bot.log.2026-04-01"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
	assert.Equal(t, filepath.Join(dir, "bot.log.2026-04-01"), w.CurrentPath())
}

func TestNew_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	log, writer, err := New(Options{Level: "info", Dir: dir})
	require.NoError(t, err)

	log.Info("hello")
	log.Debug("hidden")
	_ = log.Sync()
	require.NoError(t, writer.Close())

	raw, err := os.ReadFile(writer.CurrentPath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"hello"`)
	assert.NotContains(t, string(raw), "hidden")
}
