package files

import (
	"context"
)

// RemoteFile is a platform file resolved and downloaded into memory.
type RemoteFile struct {
	FileID   string
	FilePath string
	Name     string
	Data     []byte
}

type FileManager interface {
	// Fetch resolves fileID and downloads its bytes. Errors match
	// bot.ErrFileNotFound when resolution fails and *bot.DownloadError when
	// the byte fetch fails.
	Fetch(ctx context.Context, fileID string) (*RemoteFile, error)
}
