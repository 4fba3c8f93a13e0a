package main

import (
	"fmt"

	"go.uber.org/zap"

	"mediahook/internal/bot"
	"mediahook/internal/config"
	"mediahook/internal/logger"
)

// bootstrap loads the configuration and builds the logger. The returned
// func flushes and closes the log file.
func bootstrap(opts *rootOptions) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(opts.envFile, opts.configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, logFile, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	closeLog := func() {
		_ = log.Sync()
		_ = logFile.Close()
	}

	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	return cfg, log, closeLog, nil
}

func newTelegramBot(cfg *config.Config, log *zap.Logger) (*bot.TelegramBot, error) {
	return bot.NewTelegramBot(bot.Options{
		Token:           cfg.BotToken,
		APIRoot:         cfg.APIRoot,
		Timeout:         cfg.HTTPTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		MaxFileSize:     cfg.MaxFileSize,
	}, log)
}
