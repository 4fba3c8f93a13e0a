package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"
)

const (
	greetingText = "Hi! I'm ready to receive media. Send a photo or video."

	CallbackHelp      = "help"
	CallbackListCache = "list_cache"
)

func startKeyboard() *telego.InlineKeyboardMarkup {
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{{Text: "Help", CallbackData: CallbackHelp}},
			{{Text: "Browse media (cache)", CallbackData: CallbackListCache}},
		},
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) {
	h.logger.Info("text message", zap.Int64("user_id", userID), zap.String("text", truncate(text, 80)))

	switch {
	case strings.HasPrefix(text, "/start"):
		h.replyWithMarkup(ctx, chatID, greetingText, startKeyboard())
	case strings.HasPrefix(text, "/list_cache"):
		h.reply(ctx, chatID, cacheListing(h.cache.Keys()))
	default:
		h.reply(ctx, chatID, "You wrote: "+text)
	}
}

func cacheListing(keys []string) string {
	body := "none"
	if len(keys) > 0 {
		body = strings.Join(keys, "\n")
	}
	return fmt.Sprintf("Cached file_ids (%d):\n%s", len(keys), body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
