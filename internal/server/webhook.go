package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mymmrac/telego"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps a webhook body; Telegram updates are far smaller.
const DefaultMaxBodyBytes int64 = 10 << 20

type Dispatcher interface {
	HandleUpdate(ctx context.Context, update telego.Update)
}

type Submitter interface {
	Submit(fn func(ctx context.Context)) (string, error)
}

type WebhookConfig struct {
	Secret       string
	SecretHeader string
	MaxBodyBytes int64
}

// WebhookHandler serves POST /webhook/{secret}. Authenticated, well-formed
// updates are always answered with 200 so the platform does not redeliver.
type WebhookHandler struct {
	cfg        WebhookConfig
	dispatcher Dispatcher
	pool       Submitter
	logger     *zap.Logger
}

func NewWebhookHandler(cfg WebhookConfig, dispatcher Dispatcher, pool Submitter, logger *zap.Logger) *WebhookHandler {
	if cfg.SecretHeader == "" {
		cfg.SecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		pool:       pool,
		logger:     logger.With(zap.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook", h.Receive)
	e.POST("/webhook/*", h.Receive)
}

func (h *WebhookHandler) Receive(c echo.Context) error {
	if !h.authenticated(c) {
		return c.JSON(http.StatusForbidden, map[string]any{"ok": false, "error": "forbidden"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.cfg.MaxBodyBytes+1))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
	}
	if int64(len(body)) > h.cfg.MaxBodyBytes {
		h.logger.Warn("webhook body too large", zap.Int64("limit", h.cfg.MaxBodyBytes))
		return c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "body too large"})
	}
	if err := checkObject(body); err != nil {
		h.logger.Warn("failed to parse webhook json", zap.Error(err), zap.Int("size", len(body)))
		return c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
	}

	// A valid object that does not fit the update types is still acknowledged,
	// otherwise Telegram keeps redelivering it.
	var update telego.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("webhook update does not match known schema, skipping dispatch",
			zap.Error(err),
			zap.Int("size", len(body)),
		)
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}

	h.schedule(c.Request().Context(), update)
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// authenticated checks the header token first; only when the header is
// absent is the path segment compared.
func (h *WebhookHandler) authenticated(c echo.Context) bool {
	if h.cfg.Secret == "" {
		return true
	}
	if token := c.Request().Header.Get(h.cfg.SecretHeader); token != "" {
		if !secretEqual(token, h.cfg.Secret) {
			h.logger.Warn("webhook secret header mismatch", zap.String("remote_ip", c.RealIP()))
			return false
		}
		return true
	}
	if !secretEqual(c.Param("*"), h.cfg.Secret) {
		h.logger.Warn("webhook secret path mismatch", zap.String("remote_ip", c.RealIP()))
		return false
	}
	return true
}

// schedule hands the update to the pool. When the pool refuses, the update
// is dispatched inline on the request goroutine instead of being dropped.
func (h *WebhookHandler) schedule(ctx context.Context, update telego.Update) {
	if h.pool != nil {
		taskID, err := h.pool.Submit(func(taskCtx context.Context) {
			h.dispatcher.HandleUpdate(taskCtx, update)
		})
		if err == nil {
			h.logger.Debug("update scheduled", zap.Int("update_id", update.UpdateID), zap.String("task_id", taskID))
			return
		}
		h.logger.Warn("dispatch pool unavailable, processing inline", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
	h.dispatcher.HandleUpdate(context.WithoutCancel(ctx), update)
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

var errNotObject = errors.New("webhook body is not a valid json object")

func checkObject(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return errNotObject
	}
	return nil
}
