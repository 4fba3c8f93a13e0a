package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediahook/internal/bot"
	"mediahook/internal/files"
	"mediahook/internal/storage"
)

type fakeMessenger struct {
	mu   sync.Mutex
	sent []bot.SendMessageRequest
	err  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, req bot.SendMessageRequest) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{MessageID: len(f.sent), Text: req.Text}, nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, r := range f.sent {
		out = append(out, r.Text)
	}
	return out
}

type fakeFiles struct {
	requested []string
	err       error
	panicMsg  string
}

func (f *fakeFiles) Fetch(_ context.Context, fileID string) (*files.RemoteFile, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.requested = append(f.requested, fileID)
	if f.err != nil {
		return nil, f.err
	}
	return &files.RemoteFile{
		FileID:   fileID,
		FilePath: "photos/file_" + fileID + ".jpg",
		Name:     "file_" + fileID + ".jpg",
		Data:     []byte("payload-" + fileID),
	}, nil
}

type fakeFileSink struct {
	saved []storage.MediaAsset
	err   error
}

func (f *fakeFileSink) Save(asset storage.MediaAsset) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, asset)
	return "/srv/media/1700000000_" + asset.Filename, nil
}

type fakeDBSink struct {
	saved []storage.MediaAsset
}

func (f *fakeDBSink) Save(_ context.Context, asset storage.MediaAsset) storage.SaveResult {
	f.saved = append(f.saved, asset)
	return storage.SaveResult{Saved: true}
}

type denyAll struct{ err error }

func (d denyAll) Exists(context.Context, int64) (bool, error) { return false, d.err }

type fixture struct {
	messenger *fakeMessenger
	files     *fakeFiles
	fs        *fakeFileSink
	db        *fakeDBSink
	cache     *storage.MediaCache
	handler   *Handler
}

func newFixture() *fixture {
	f := &fixture{
		messenger: &fakeMessenger{},
		files:     &fakeFiles{},
		fs:        &fakeFileSink{},
		db:        &fakeDBSink{},
		cache:     storage.NewMediaCache(0),
	}
	f.handler = NewHandler(f.messenger, f.files, f.cache, f.fs, f.db, nil, nil)
	return f
}

func photoUpdate(n int) telego.Update {
	sizes := make([]telego.PhotoSize, 0, n)
	for i := 0; i < n; i++ {
		sizes = append(sizes, telego.PhotoSize{FileID: fmt.Sprintf("size%d", i), Width: 90 * (i + 1)})
	}
	return telego.Update{
		UpdateID: 1,
		Message: &telego.Message{
			MessageID: 10,
			From:      &telego.User{ID: 42},
			Chat:      telego.Chat{ID: 4242},
			Photo:     sizes,
		},
	}
}

func textUpdate(text string) telego.Update {
	return telego.Update{
		UpdateID: 2,
		Message: &telego.Message{
			MessageID: 11,
			From:      &telego.User{ID: 42},
			Chat:      telego.Chat{ID: 4242},
			Text:      text,
		},
	}
}

func TestHandleUpdate_PhotoUsesLargestSize(t *testing.T) {
	for n := 1; n <= 10; n++ {
		t.Run(fmt.Sprintf("sizes=%d", n), func(t *testing.T) {
			f := newFixture()
			f.handler.HandleUpdate(context.Background(), photoUpdate(n))

			want := fmt.Sprintf("size%d", n-1)
			assert.Equal(t, []string{want}, f.files.requested)
		})
	}
}

func TestHandleUpdate_PhotoWritesAllSinks(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), photoUpdate(3))

	asset, ok := f.cache.Get("size2")
	require.True(t, ok)
	assert.Equal(t, []byte("payload-size2"), asset.Data)
	assert.Equal(t, storage.KindPhoto, asset.Kind)
	assert.Equal(t, int64(42), asset.UserID)

	require.Len(t, f.fs.saved, 1)
	require.Len(t, f.db.saved, 1)
	assert.Equal(t, "file_size2.jpg", f.db.saved[0].Filename)

	texts := f.messenger.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Photo received and saved (file: 1700000000_file_size2.jpg)", texts[0])
	assert.Equal(t, int64(4242), f.messenger.sent[0].ChatID)
}

func TestHandleUpdate_VideoWritesAllSinks(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), telego.Update{
		UpdateID: 3,
		Message: &telego.Message{
			From:  &telego.User{ID: 7},
			Chat:  telego.Chat{ID: 70},
			Video: &telego.Video{FileID: "vid1"},
		},
	})

	asset, ok := f.cache.Get("vid1")
	require.True(t, ok)
	assert.Equal(t, storage.KindVideo, asset.Kind)
	assert.Len(t, f.db.saved, 1)
	assert.Equal(t, []string{"Video received and saved (file: 1700000000_file_vid1.jpg)"}, f.messenger.texts())
}

func TestHandleUpdate_FileStoreFailureStillAcknowledges(t *testing.T) {
	f := newFixture()
	f.fs.err = storage.ErrIO
	f.handler.HandleUpdate(context.Background(), photoUpdate(1))

	_, ok := f.cache.Get("size0")
	assert.True(t, ok)
	assert.Len(t, f.db.saved, 1)
	assert.Equal(t, []string{"Photo received and saved (file: file_size0.jpg)"}, f.messenger.texts())
}

func TestHandleUpdate_UnconfiguredDatabaseStillAcknowledges(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.messenger, f.files, f.cache, f.fs, storage.NewDBStore(nil, nil, nil), nil, nil)

	h.HandleUpdate(context.Background(), photoUpdate(2))

	assert.Equal(t, 1, f.cache.Len())
	assert.Len(t, f.fs.saved, 1)
	assert.Equal(t, []string{"Photo received and saved (file: 1700000000_file_size1.jpg)"}, f.messenger.texts())
}

func TestHandleUpdate_FetchFailureSendsNotice(t *testing.T) {
	f := newFixture()
	f.files.err = errors.New("file not found")

	f.handler.HandleUpdate(context.Background(), photoUpdate(2))

	assert.Zero(t, f.cache.Len())
	assert.Empty(t, f.fs.saved)
	assert.Empty(t, f.db.saved)
	assert.Equal(t, []string{"Error while processing the photo."}, f.messenger.texts())
}

func TestHandleUpdate_NotRegistered(t *testing.T) {
	for name, checker := range map[string]denyAll{
		"unknown user": {},
		"check error":  {err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			h := NewHandler(f.messenger, f.files, f.cache, f.fs, f.db, checker, nil)

			h.HandleUpdate(context.Background(), photoUpdate(2))

			assert.Empty(t, f.files.requested)
			assert.Zero(t, f.cache.Len())
			assert.Equal(t, []string{notRegisteredText}, f.messenger.texts())
		})
	}
}

func TestHandleUpdate_StartSendsKeyboard(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), textUpdate("  /start  "))

	require.Len(t, f.messenger.sent, 1)
	req := f.messenger.sent[0]
	assert.Equal(t, greetingText, req.Text)
	require.NotNil(t, req.ReplyMarkup)
	require.Len(t, req.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, CallbackHelp, req.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackListCache, req.ReplyMarkup.InlineKeyboard[1][0].CallbackData)
}

func TestHandleUpdate_ListCache(t *testing.T) {
	f := newFixture()

	f.handler.HandleUpdate(context.Background(), textUpdate("/list_cache"))
	assert.Equal(t, []string{"Cached file_ids (0):\nnone"}, f.messenger.texts())

	f.handler.HandleUpdate(context.Background(), photoUpdate(1))
	f.handler.HandleUpdate(context.Background(), textUpdate("/list_cache"))

	texts := f.messenger.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "Cached file_ids (1):\nsize0", texts[2])
}

func TestHandleUpdate_Echo(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), textUpdate("  hello there \n"))

	assert.Equal(t, []string{"You wrote: hello there"}, f.messenger.texts())
}

func TestHandleUpdate_EditedMessage(t *testing.T) {
	f := newFixture()
	update := textUpdate("edited")
	update.EditedMessage, update.Message = update.Message, nil

	f.handler.HandleUpdate(context.Background(), update)

	assert.Equal(t, []string{"You wrote: edited"}, f.messenger.texts())
}

func TestHandleUpdate_CallbackOnlyIsNoop(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), telego.Update{
		UpdateID: 5,
		CallbackQuery: &telego.CallbackQuery{
			ID:   "cb",
			From: telego.User{ID: 42},
			Data: CallbackListCache,
		},
	})

	assert.Empty(t, f.messenger.texts())
	assert.Empty(t, f.files.requested)
}

func TestHandleUpdate_EmptyUpdate(t *testing.T) {
	f := newFixture()
	assert.NotPanics(t, func() {
		f.handler.HandleUpdate(context.Background(), telego.Update{UpdateID: 6})
	})
	assert.Empty(t, f.messenger.texts())
}

func TestHandleUpdate_SendFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.messenger.err = errors.New("blocked by user")

	f.handler.HandleUpdate(context.Background(), photoUpdate(1))

	assert.Equal(t, 1, f.cache.Len())
	assert.Len(t, f.messenger.sent, 1)
}

func TestHandleUpdate_RecoversPanic(t *testing.T) {
	f := newFixture()
	f.files.panicMsg = "boom"

	assert.NotPanics(t, func() {
		f.handler.HandleUpdate(context.Background(), photoUpdate(1))
	})
}

func TestCacheListing(t *testing.T) {
	assert.Equal(t, "Cached file_ids (2):\na\nb", cacheListing([]string{"a", "b"}))
}
