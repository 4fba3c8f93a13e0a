package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediahook/internal/storage"
	"mediahook/internal/worker"
)

const testSecret = "s3cr3t"

type recordingDispatcher struct {
	mu      sync.Mutex
	updates []telego.Update
}

func (d *recordingDispatcher) HandleUpdate(_ context.Context, update telego.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, update)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates)
}

// inlinePool runs tasks synchronously so assertions need no waiting.
type inlinePool struct{ submitted int }

func (p *inlinePool) Submit(fn func(ctx context.Context)) (string, error) {
	p.submitted++
	fn(context.Background())
	return "task", nil
}

type refusingPool struct{}

func (refusingPool) Submit(func(ctx context.Context)) (string, error) {
	return "", worker.ErrQueueFull
}

func newTestServer(secret string, pool Submitter) (*Server, *recordingDispatcher, *storage.MediaCache) {
	d := &recordingDispatcher{}
	cache := storage.NewMediaCache(0)
	s := NewServer(nil, "",
		NewWebhookHandler(WebhookConfig{Secret: secret}, d, pool, nil),
		NewAdminHandler(cache, nil),
	)
	return s, d, cache
}

func do(t *testing.T, s *Server, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const updateBody = `{"update_id": 77, "message": {"message_id": 1, "date": 0, "chat": {"id": 5, "type": "private"}, "text": "hi"}}`

func TestWebhook_Auth(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "header match", path: "/webhook/whatever", header: testSecret, wantStatus: http.StatusOK},
		{name: "header mismatch wins over matching path", path: "/webhook/" + testSecret, header: "nope", wantStatus: http.StatusForbidden},
		{name: "path match without header", path: "/webhook/" + testSecret, wantStatus: http.StatusOK},
		{name: "path mismatch without header", path: "/webhook/wrong", wantStatus: http.StatusForbidden},
		{name: "no path and no header", path: "/webhook", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d, _ := newTestServer(testSecret, &inlinePool{})
			header := map[string]string{}
			if tt.header != "" {
				header["X-Telegram-Bot-Api-Secret-Token"] = tt.header
			}

			rec, body := do(t, s, http.MethodPost, tt.path, updateBody, header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "forbidden", body["error"])
				assert.Zero(t, d.count(), "rejected requests must not be dispatched")
			} else {
				assert.Equal(t, true, body["ok"])
				assert.Equal(t, 1, d.count())
			}
		})
	}
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	s, d, _ := newTestServer("", &inlinePool{})

	rec, _ := do(t, s, http.MethodPost, "/webhook/anything", updateBody,
		map[string]string{"X-Telegram-Bot-Api-Secret-Token": "ignored"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, d.count())
	assert.Equal(t, 77, d.updates[0].UpdateID)
	assert.Equal(t, "hi", d.updates[0].Message.Text)
}

func TestWebhook_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"truncated": `{"update_id": 1,`,
		"not json":  `hello`,
		"array":     `[1,2,3]`,
		"null":      `null`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			s, d, _ := newTestServer(testSecret, &inlinePool{})

			rec, out := do(t, s, http.MethodPost, "/webhook/"+testSecret, body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid json", out["error"])
			assert.Zero(t, d.count())
		})
	}
}

func TestWebhook_SchemaMismatchStillAcks(t *testing.T) {
	for name, body := range map[string]string{
		"unknown origin variant": `{"update_id": 9, "message": {"message_id": 1, "date": 0, "chat": {"id": 5, "type": "private"}, "text": "hi", "forward_origin": {"type": "hidden_new_kind", "date": 1}}}`,
		"wrong field type":       `{"update_id": "x", "message": {"message_id": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, d, _ := newTestServer(testSecret, &inlinePool{})

			rec, out := do(t, s, http.MethodPost, "/webhook/"+testSecret, body, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, out["ok"])
			assert.Zero(t, d.count())
		})
	}
}

func TestWebhook_OversizedBody(t *testing.T) {
	d := &recordingDispatcher{}
	s := NewServer(nil, "", NewWebhookHandler(WebhookConfig{MaxBodyBytes: 32}, d, &inlinePool{}, nil))

	rec, out := do(t, s, http.MethodPost, "/webhook/", updateBody, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body too large", out["error"])
	assert.Zero(t, d.count())
}

func TestWebhook_InlineFallback(t *testing.T) {
	s, d, _ := newTestServer("", refusingPool{})

	rec, _ := do(t, s, http.MethodPost, "/webhook/", updateBody, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.count())
}

func TestWebhook_RealPool(t *testing.T) {
	pool := worker.NewPool(worker.Config{Workers: 2, QueueSize: 8}, nil)
	pool.Start(context.Background())
	s, d, _ := newTestServer("", pool)

	for i := 0; i < 5; i++ {
		rec, _ := do(t, s, http.MethodPost, "/webhook/", updateBody, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(ctx))
	assert.Equal(t, 5, d.count())
}

func TestAdmin_Health(t *testing.T) {
	s, _, _ := newTestServer("", nil)

	rec, body := do(t, s, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	_, err := time.Parse(time.RFC3339Nano, body["time"].(string))
	assert.NoError(t, err)
}

func TestAdmin_CacheKeysAndDelete(t *testing.T) {
	s, _, cache := newTestServer("", nil)
	cache.Put(storage.MediaAsset{SourceID: "AgAD1", Data: []byte{1}})
	cache.Put(storage.MediaAsset{SourceID: "AgAD2", Data: []byte{2}})

	_, body := do(t, s, http.MethodGet, "/cache_keys", "", nil)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []any{"AgAD1", "AgAD2"}, body["keys"])

	rec, body := do(t, s, http.MethodPost, "/admin/delete_cache/AgAD1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AgAD1", body["deleted"])
	assert.Equal(t, 1, cache.Len())

	_, body = do(t, s, http.MethodPost, "/admin/delete_cache/missing", "", nil)
	assert.Nil(t, body["deleted"])
	assert.Equal(t, "not found", body["msg"])
	assert.Equal(t, 1, cache.Len())
}
