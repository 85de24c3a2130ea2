package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/notifier"
)

var _ notifier.Notifier = (*Webhook)(nil)

var sentAt = time.Date(2024, 3, 4, 15, 0, 5, 0, time.UTC)

func sampleAlert() notifier.Alert {
	return notifier.Alert{
		Rule:      "daily_loss",
		Severity:  notifier.SeverityCritical,
		UserID:    "alice",
		AccountID: "ftmo-100k",
		Title:     "Daily loss limit",
		Message:   "daily_pnl -620.00 breached -500",
		At:        time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
	}
}

type capture struct {
	body    []byte
	headers http.Header
	calls   int
}

func receiver(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.headers = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func initWebhook(t *testing.T, params map[string]any) *Webhook {
	t.Helper()
	w := &Webhook{now: func() time.Time { return sentAt }}
	require.NoError(t, w.Init(notifier.Config{Type: "webhook", Params: params}))
	return w
}

func TestWebhook_Init(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		timeout time.Duration
		wantErr bool
	}{
		{"missing url", map[string]any{}, 0, true},
		{"bad scheme", map[string]any{"url": "ftp://example.com"}, 0, true},
		{"defaults", map[string]any{"url": "https://example.com/hook"}, DefaultTimeout, false},
		{"timeout string", map[string]any{"url": "https://example.com/hook", "timeout": "3s"}, 3 * time.Second, false},
		{"timeout seconds", map[string]any{"url": "https://example.com/hook", "timeout": 20}, 20 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Webhook{}
			err := w.Init(notifier.Config{Params: tt.params})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.timeout, w.client.Timeout)
		})
	}
}

func TestWebhook_Send(t *testing.T) {
	srv, got := receiver(t, http.StatusNoContent)
	w := initWebhook(t, map[string]any{
		"url":     srv.URL,
		"headers": map[string]any{"Authorization": "Bearer x"},
	})
	require.NoError(t, w.Send(context.Background(), sampleAlert()))

	assert.Equal(t, "Bearer x", got.headers.Get("Authorization"))
	assert.Equal(t, "alert", got.headers.Get(EventHeader))
	assert.Equal(t, "1709564405", got.headers.Get("X-Zella-Timestamp"))
	assert.Empty(t, got.headers.Get(SignatureHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.Equal(t, "alert", body["event"])
	assert.Equal(t, "2024-03-04T15:00:05Z", body["sent_at"])
	alert := body["alert"].(map[string]any)
	assert.Equal(t, "daily_loss", alert["rule"])
	assert.Equal(t, "critical", alert["severity"])
	assert.Equal(t, "alice", alert["userId"])
}

func TestWebhook_Signature(t *testing.T) {
	srv, got := receiver(t, http.StatusOK)
	w := initWebhook(t, map[string]any{"url": srv.URL, "secret": "s3cret"})
	require.NoError(t, w.Send(context.Background(), sampleAlert()))

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(got.body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), got.headers.Get(SignatureHeader))
}

func TestWebhook_SendBatch(t *testing.T) {
	srv, got := receiver(t, http.StatusOK)
	w := initWebhook(t, map[string]any{"url": srv.URL})

	require.NoError(t, w.SendBatch(context.Background(), nil))
	assert.Equal(t, 0, got.calls)

	require.NoError(t, w.SendBatch(context.Background(), []notifier.Alert{sampleAlert(), sampleAlert()}))
	assert.Equal(t, 1, got.calls)
	assert.Equal(t, "digest", got.headers.Get(EventHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.EqualValues(t, 2, body["count"])
	assert.Len(t, body["alerts"], 2)
}

func TestWebhook_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusMovedPermanently, http.StatusUnauthorized, http.StatusBadGateway} {
		srv, _ := receiver(t, status)
		w := initWebhook(t, map[string]any{"url": srv.URL})
		assert.Error(t, w.Send(context.Background(), sampleAlert()), "status %d", status)
	}
}
