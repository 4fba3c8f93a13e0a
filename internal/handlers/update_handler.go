package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"mediahook/internal/bot"
	"mediahook/internal/files"
	"mediahook/internal/storage"
	"mediahook/internal/users"
)

const notRegisteredText = "You are not registered with this service. Please register."

type Messenger interface {
	SendMessage(ctx context.Context, req bot.SendMessageRequest) (*telego.Message, error)
}

type FileSink interface {
	Save(asset storage.MediaAsset) (string, error)
}

type DBSink interface {
	Save(ctx context.Context, asset storage.MediaAsset) storage.SaveResult
}

// Handler turns one Telegram update into downloads, sink writes and replies.
type Handler struct {
	bot         Messenger
	fileManager files.FileManager
	cache       *storage.MediaCache
	fileStore   FileSink
	dbStore     DBSink
	users       users.Checker
	logger      *zap.Logger
	now         func() time.Time
}

func NewHandler(
	bot Messenger,
	fileManager files.FileManager,
	cache *storage.MediaCache,
	fileStore FileSink,
	dbStore DBSink,
	checker users.Checker,
	logger *zap.Logger,
) *Handler {
	if checker == nil {
		checker = users.AllowAll{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bot:         bot,
		fileManager: fileManager,
		cache:       cache,
		fileStore:   fileStore,
		dbStore:     dbStore,
		users:       checker,
		logger:      logger.With(zap.String("component", "dispatcher")),
		now:         time.Now,
	}
}

// HandleUpdate never panics and never returns an error; every failure ends
// in a log line and, where a chat is known, a notice to that chat.
func (h *Handler) HandleUpdate(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("unhandled panic in update processing",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
				zap.StackSkip("stack", 2),
			)
		}
	}()

	h.logger.Info("processing update", zap.Int("update_id", update.UpdateID), zap.Strings("kinds", updateKinds(update)))

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		if cb := update.CallbackQuery; cb != nil {
			h.logger.Info("received callback query",
				zap.Int64("user_id", cb.From.ID),
				zap.String("data", cb.Data),
			)
		}
		return
	}

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	chatID := msg.Chat.ID

	if !h.registered(ctx, userID) {
		h.logger.Warn("user is not registered, ignoring message", zap.Int64("user_id", userID))
		h.reply(ctx, chatID, notRegisteredText)
		return
	}

	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		h.handleMedia(ctx, chatID, userID, storage.KindPhoto, largest.FileID)
	}

	if msg.Video != nil {
		h.handleMedia(ctx, chatID, userID, storage.KindVideo, msg.Video.FileID)
	}

	if msg.Text != "" {
		h.handleText(ctx, chatID, userID, strings.TrimSpace(msg.Text))
	}
}

func (h *Handler) registered(ctx context.Context, userID int64) bool {
	ok, err := h.users.Exists(ctx, userID)
	if err != nil {
		h.logger.Error("user check failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

var (
	savedText = map[storage.MediaKind]string{
		storage.KindPhoto: "Photo received and saved (file: %s)",
		storage.KindVideo: "Video received and saved (file: %s)",
	}
	failedText = map[storage.MediaKind]string{
		storage.KindPhoto: "Error while processing the photo.",
		storage.KindVideo: "Error while processing the video.",
	}
)

func (h *Handler) handleMedia(ctx context.Context, chatID, userID int64, kind storage.MediaKind, fileID string) {
	h.logger.Info("incoming media",
		zap.String("type", string(kind)),
		zap.String("file_id", fileID),
		zap.Int64("user_id", userID),
	)

	rf, err := h.fileManager.Fetch(ctx, fileID)
	if err != nil {
		h.fail(ctx, chatID, "error processing "+string(kind), failedText[kind], err)
		return
	}

	asset := storage.MediaAsset{
		SourceID:   fileID,
		UserID:     userID,
		Kind:       kind,
		Filename:   rf.Name,
		CapturedAt: h.now().UTC(),
		Data:       rf.Data,
	}
	stored := h.persist(ctx, asset)

	h.reply(ctx, chatID, fmt.Sprintf(savedText[kind], stored))
}

// persist writes to every sink. Only the cache write is unconditional; the
// filesystem and database writes are attempted regardless of each other.
// The returned name is the stored file name, or the original name when the
// filesystem write failed.
func (h *Handler) persist(ctx context.Context, asset storage.MediaAsset) string {
	if evicted := h.cache.Put(asset); evicted != "" {
		h.logger.Debug("evicted cache entry", zap.String("file_id", evicted))
	}

	stored := asset.Filename
	if path, err := h.fileStore.Save(asset); err != nil {
		h.logger.Error("filesystem save failed", zap.String("file_id", asset.SourceID), zap.Error(err))
	} else {
		stored = filepath.Base(path)
	}

	if res := h.dbStore.Save(ctx, asset); !res.Saved {
		h.logger.Debug("media not stored in database", zap.String("file_id", asset.SourceID), zap.Error(res.Err))
	}

	return stored
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.replyWithMarkup(ctx, chatID, text, nil)
}

func (h *Handler) replyWithMarkup(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) {
	_, err := h.bot.SendMessage(ctx, bot.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) fail(ctx context.Context, chatID int64, logMsg, userMsg string, err error) {
	h.logger.Error(logMsg, zap.Int64("chat_id", chatID), zap.Error(err))
	h.reply(ctx, chatID, userMsg)
}

func updateKinds(update telego.Update) []string {
	var kinds []string
	if update.Message != nil {
		kinds = append(kinds, "message")
	}
	if update.EditedMessage != nil {
		kinds = append(kinds, "edited_message")
	}
	if update.CallbackQuery != nil {
		kinds = append(kinds, "callback_query")
	}
	return kinds
}
