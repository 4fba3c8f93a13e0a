package files

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"mediahook/internal/bot"
)

type resolver interface {
	GetFile(ctx context.Context, fileID string) (*bot.File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
}

type telegramFileManager struct {
	client resolver
	logger *zap.Logger
}

func NewTelegramFileManager(client resolver, logger *zap.Logger) FileManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &telegramFileManager{
		client: client,
		logger: logger.With(zap.String("component", "files")),
	}
}

func (fm *telegramFileManager) Fetch(ctx context.Context, fileID string) (*RemoteFile, error) {
	tf, err := fm.client.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if tf == nil || tf.FilePath == "" {
		return nil, fmt.Errorf("%w: invalid file info from telegram for id %s", bot.ErrFileNotFound, fileID)
	}

	data, err := fm.client.DownloadFile(ctx, tf.FilePath)
	if err != nil {
		return nil, err
	}

	fm.logger.Debug("file downloaded",
		zap.String("file_id", fileID),
		zap.String("file_path", tf.FilePath),
		zap.Int("size", len(data)),
	)

	return &RemoteFile{
		FileID:   fileID,
		FilePath: tf.FilePath,
		Name:     path.Base(tf.FilePath),
		Data:     data,
	}, nil
}
