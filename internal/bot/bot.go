package bot

import (
	"context"

	"github.com/mymmrac/telego"
)

// Bot is the outbound side of the Telegram Bot API used by this service.
type Bot interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*telego.Message, error)
	SendPhoto(ctx context.Context, req SendMediaRequest) (*telego.Message, error)
	SendVideo(ctx context.Context, req SendMediaRequest) (*telego.Message, error)

	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)

	SetWebhook(ctx context.Context, webhookURL, secretToken string) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

type SendMessageRequest struct {
	ChatID      int64
	Text        string
	ParseMode   string
	ReplyMarkup *telego.InlineKeyboardMarkup
}

// SendMediaRequest carries either in-memory bytes or a path on disk. Data
// wins when both are set.
type SendMediaRequest struct {
	ChatID   int64
	Data     []byte
	FileName string
	Path     string
	Caption  string
}

type File struct {
	FileID   string
	FilePath string
	FileSize int64
}
