// Package logger builds the process zap logger: human-readable output on
// stderr and JSON lines in a daily log file.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultFileName = "bot.log"

type Options struct {
	Level    string
	Dir      string
	FileName string
}

// New returns the logger and the file writer backing it. The caller closes
// the writer after the final Sync.
func New(opts Options) (*zap.Logger, *DailyWriter, error) {
	level := parseLevel(opts.Level)

	fileName := opts.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	writer, err := NewDailyWriter(opts.Dir, fileName)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "message"

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), writer, nil
}

// parseLevel defaults to info for empty or unknown levels.
func parseLevel(logLevel string) zapcore.Level {
	logLevel = strings.ToLower(strings.TrimSpace(logLevel))
	if logLevel == "" {
		return zapcore.InfoLevel
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
