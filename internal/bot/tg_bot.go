package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"go.uber.org/zap"
)

type Options struct {
	Token           string
	APIRoot         string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	MaxFileSize     int64
	// HTTPClient overrides the clients built from the timeouts.
	HTTPClient *http.Client
}

type TelegramBot struct {
	client      *telego.Bot
	http        *http.Client
	token       string
	apiRoot     string
	maxFileSize int64
	logger      *zap.Logger
}

// NewTelegramBot never fails on an empty token: the returned bot answers
// every call with ErrNoToken so the service can still start.
func NewTelegramBot(opts Options, logger *zap.Logger) (*TelegramBot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "telegram"))

	apiRoot := strings.TrimRight(opts.APIRoot, "/")
	if apiRoot == "" {
		apiRoot = "https://api.telegram.org"
	}

	apiClient, downloadClient := opts.HTTPClient, opts.HTTPClient
	if apiClient == nil {
		apiClient = &http.Client{Timeout: opts.Timeout}
		downloadClient = &http.Client{Timeout: opts.DownloadTimeout}
	}

	tb := &TelegramBot{
		http:        downloadClient,
		token:       opts.Token,
		apiRoot:     apiRoot,
		maxFileSize: opts.MaxFileSize,
		logger:      logger,
	}
	if opts.Token == "" {
		return tb, nil
	}

	b, err := telego.NewBot(opts.Token,
		telego.WithAPIServer(apiRoot),
		telego.WithHTTPClient(apiClient),
		telego.WithLogger(logger.Sugar()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telego bot: %w", err)
	}
	tb.client = b
	return tb, nil
}

func (tb *TelegramBot) SendMessage(ctx context.Context, req SendMessageRequest) (*telego.Message, error) {
	const method = "sendMessage"
	if err := tb.ready(method); err != nil {
		return nil, err
	}

	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: req.ChatID},
		Text:      req.Text,
		ParseMode: req.ParseMode,
	}
	if req.ReplyMarkup != nil {
		params.ReplyMarkup = req.ReplyMarkup
	}

	tb.logger.Info("send message", zap.Int64("chat_id", req.ChatID), zap.String("text", summarize(req.Text, 50)))
	msg, err := tb.client.SendMessage(ctx, params)
	if err != nil {
		return nil, transportError(method, err)
	}
	return msg, nil
}

func (tb *TelegramBot) SendPhoto(ctx context.Context, req SendMediaRequest) (*telego.Message, error) {
	const method = "sendPhoto"
	return tb.sendMedia(ctx, method, req, "photo.jpg",
		func(c context.Context, id telego.ChatID, f telego.InputFile) (*telego.Message, error) {
			return tb.client.SendPhoto(c, &telego.SendPhotoParams{
				ChatID:  id,
				Photo:   f,
				Caption: req.Caption,
			})
		},
	)
}

func (tb *TelegramBot) SendVideo(ctx context.Context, req SendMediaRequest) (*telego.Message, error) {
	const method = "sendVideo"
	return tb.sendMedia(ctx, method, req, "video.mp4",
		func(c context.Context, id telego.ChatID, f telego.InputFile) (*telego.Message, error) {
			return tb.client.SendVideo(c, &telego.SendVideoParams{
				ChatID:  id,
				Video:   f,
				Caption: req.Caption,
			})
		},
	)
}

func (tb *TelegramBot) sendMedia(
	ctx context.Context,
	method string,
	req SendMediaRequest,
	defaultName string,
	sender func(context.Context, telego.ChatID, telego.InputFile) (*telego.Message, error),
) (*telego.Message, error) {
	if req.Data == nil && req.Path == "" {
		return nil, fmt.Errorf("%s: either data or path must be provided: %w", method, ErrInvalidArgument)
	}
	if err := tb.ready(method); err != nil {
		return nil, err
	}

	var input telego.InputFile
	if req.Data != nil {
		name := req.FileName
		if name == "" {
			name = defaultName
		}
		input = telego.InputFile{File: namedReader{Reader: bytes.NewReader(req.Data), name: name}}
		tb.logger.Info(method, zap.Int64("chat_id", req.ChatID), zap.Int("bytes_size", len(req.Data)))
	} else {
		file, err := os.Open(req.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file %s: %w", req.Path, err)
		}
		defer func(file *os.File) {
			if closeErr := file.Close(); closeErr != nil {
				tb.logger.Warn("failed to close file", zap.String("path", req.Path), zap.Error(closeErr))
			}
		}(file)
		input = telego.InputFile{File: file}
		tb.logger.Info(method, zap.Int64("chat_id", req.ChatID), zap.String("file", req.Path))
	}

	msg, err := sender(ctx, telego.ChatID{ID: req.ChatID}, input)
	if err != nil {
		return nil, transportError(method, err)
	}
	return msg, nil
}

// GetFile resolves a file id to its server-relative path. Every failure
// matches ErrFileNotFound.
func (tb *TelegramBot) GetFile(ctx context.Context, fileID string) (*File, error) {
	const method = "getFile"
	if err := tb.ready(method); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, fileID, err)
	}

	tb.logger.Debug("get file", zap.String("file_id", fileID))
	f, err := tb.client.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, fileID, transportError(method, err))
	}
	if f == nil || f.FilePath == "" {
		return nil, fmt.Errorf("%w: getFile returned no file_path for %s", ErrFileNotFound, fileID)
	}

	return &File{
		FileID:   f.FileID,
		FilePath: f.FilePath,
		FileSize: f.FileSize,
	}, nil
}

// DownloadFile fetches raw bytes from the file origin:
// <api root>/file/bot<token>/<file path>.
func (tb *TelegramBot) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	if tb.token == "" {
		return nil, &DownloadError{FilePath: filePath, Err: ErrNoToken}
	}

	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", tb.apiRoot, tb.token, strings.TrimLeft(filePath, "/"))
	tb.logger.Debug("downloading file", zap.String("file_path", filePath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, &DownloadError{FilePath: filePath, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := tb.http.Do(req)
	if err != nil {
		// the url carries the token; keep only the underlying cause
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &DownloadError{FilePath: filePath, Err: fmt.Errorf("download request failed: %w", err)}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			tb.logger.Warn("failed to close download body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &DownloadError{FilePath: filePath, Status: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if tb.maxFileSize > 0 {
		reader = io.LimitReader(resp.Body, tb.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &DownloadError{FilePath: filePath, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if tb.maxFileSize > 0 && int64(len(data)) > tb.maxFileSize {
		return nil, &DownloadError{FilePath: filePath, Err: ErrFileTooLarge}
	}
	return data, nil
}

func (tb *TelegramBot) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
	const method = "setWebhook"
	if webhookURL == "" {
		return fmt.Errorf("%s: url is required: %w", method, ErrInvalidArgument)
	}
	if err := tb.ready(method); err != nil {
		return err
	}

	tb.logger.Info("setting webhook", zap.String("url", webhookURL), zap.Bool("secret_set", secretToken != ""))
	err := tb.client.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:         webhookURL,
		SecretToken: secretToken,
	})
	if err != nil {
		return transportError(method, err)
	}
	return nil
}

func (tb *TelegramBot) DeleteWebhook(ctx context.Context, dropPending bool) error {
	const method = "deleteWebhook"
	if err := tb.ready(method); err != nil {
		return err
	}

	tb.logger.Info("deleting webhook", zap.Bool("drop_pending_updates", dropPending))
	if err := tb.client.DeleteWebhook(ctx, &telego.DeleteWebhookParams{DropPendingUpdates: dropPending}); err != nil {
		return transportError(method, err)
	}
	return nil
}

func (tb *TelegramBot) ready(method string) error {
	if tb.client == nil {
		return &TransportError{Method: method, Err: ErrNoToken}
	}
	return nil
}

func transportError(method string, err error) error {
	te := &TransportError{Method: method, Err: err}
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		te.Status = apiErr.ErrorCode
		te.Body = apiErr.Description
	}
	return te
}

type namedReader struct {
	io.Reader
	name string
}

func (n namedReader) Name() string { return n.name }

func summarize(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
