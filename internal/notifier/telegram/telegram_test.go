package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Init(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"complete", map[string]any{"bot_token": "tok", "chat_id": "42"}, false},
		{"missing token", map[string]any{"chat_id": "42"}, true},
		{"missing chat", map[string]any{"bot_token": "tok"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &Telegram{}
			err := tg.Init(notifier.Config{Params: tt.params})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultAPIBase, tg.apiBase)
		})
	}
}

func TestTelegram_Send(t *testing.T) {
	var path string
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	tg := New("", "")
	require.NoError(t, tg.Init(notifier.Config{Params: map[string]any{
		"bot_token": "test-token",
		"chat_id":   "test-chat",
		"api_base":  server.URL + "/",
	}}))

	alert := notifier.Alert{
		Rule:     "loss_streak",
		Severity: notifier.SeverityWarning,
		UserID:   "alice",
		Message:  "3 losses in a row",
		At:       time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, tg.Send(context.Background(), alert))

	assert.Equal(t, "/bottest-token/sendMessage", path)
	assert.Equal(t, "test-chat", received["chat_id"])
	assert.Equal(t, "HTML", received["parse_mode"])
	assert.Contains(t, received["text"], "3 losses in a row")
	assert.NotContains(t, received, "disable_notification")
}

func TestTelegram_QuietBelowCritical(t *testing.T) {
	var silent []bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		silent = append(silent, req.DisableNotification)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer server.Close()

	tg := New("tok", "chat")
	require.NoError(t, tg.Init(notifier.Config{Params: map[string]any{"api_base": server.URL, "quiet": true}}))

	ctx := context.Background()
	require.NoError(t, tg.Send(ctx, notifier.Alert{Rule: "a", Severity: notifier.SeverityWarning}))
	require.NoError(t, tg.Send(ctx, notifier.Alert{Rule: "b", Severity: notifier.SeverityCritical}))
	assert.Equal(t, []bool{true, false}, silent)
}

func TestTelegram_SendBatchSplitsLongDigest(t *testing.T) {
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		texts = append(texts, req.Text)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer server.Close()

	tg := New("tok", "chat")
	tg.apiBase = server.URL

	alerts := make([]notifier.Alert, 6)
	for i := range alerts {
		alerts[i] = notifier.Alert{Rule: "note", UserID: "alice", Message: strings.Repeat("x", 1500)}
	}
	require.NoError(t, tg.SendBatch(context.Background(), alerts))

	require.Greater(t, len(texts), 1)
	total := 0
	for _, text := range texts {
		assert.LessOrEqual(t, len(text), maxMessageLen)
		total += strings.Count(text, strings.Repeat("x", 1500))
	}
	assert.Equal(t, 6, total)
	assert.True(t, strings.HasPrefix(texts[0], "🔔 <b>6 Journal Alerts</b>"))
}

func TestTelegram_OKFalseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 400, Description: "Bad Request: chat not found"})
	}))
	defer server.Close()

	tg := New("tok", "chat")
	tg.apiBase = server.URL
	err := tg.Send(context.Background(), notifier.Alert{Rule: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_SendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer server.Close()

	tg := New("bad", "chat")
	tg.apiBase = server.URL
	err := tg.Send(context.Background(), notifier.Alert{Rule: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTelegram_FormatAlert(t *testing.T) {
	formatted := formatAlert(notifier.Alert{
		Rule:      "daily_loss",
		Severity:  notifier.SeverityCritical,
		UserID:    "alice",
		AccountID: "ftmo<1>",
		Title:     "Daily loss limit",
		Message:   "stop trading for today",
		Metrics:   map[string]float64{"daily_pnl": -620, "trades_today": 4},
		At:        time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
	})

	assert.True(t, strings.HasPrefix(formatted, "🛑 <b>Daily loss limit</b>"))
	assert.Contains(t, formatted, "ftmo&lt;1&gt;")
	assert.Contains(t, formatted, "daily_pnl: -620.00")
	assert.Less(t, strings.Index(formatted, "daily_pnl"), strings.Index(formatted, "trades_today"))
	assert.Contains(t, formatted, "2024-03-04 15:00:00")
}

func TestTelegram_SendBatch_Empty(t *testing.T) {
	tg := New("token", "chat")
	assert.NoError(t, tg.SendBatch(context.Background(), nil))
}
