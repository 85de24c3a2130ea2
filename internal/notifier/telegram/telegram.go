// Package telegram sends alerts through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/newthinker/zella/internal/notifier"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultAPIBase = "https://api.telegram.org"
	defaultTimeout = 30 * time.Second

	// maxMessageLen is the Bot API limit on sendMessage text, in bytes here
	// to stay on the safe side of its UTF-16 count.
	maxMessageLen = 4096
	separator     = "\n---\n\n"
)

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Telegram posts alerts to one chat. Below critical severity messages are
// delivered silently when quiet is set.
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	quiet    bool
	client   *http.Client
}

func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Init reads bot_token, chat_id, api_base, quiet and timeout.
func (t *Telegram) Init(cfg notifier.Config) error {
	if token := cfg.String("bot_token"); token != "" {
		t.botToken = token
	}
	if chatID := cfg.String("chat_id"); chatID != "" {
		t.chatID = chatID
	}
	if base := cfg.String("api_base"); base != "" {
		t.apiBase = base
	}
	t.apiBase = strings.TrimRight(t.apiBase, "/")
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if q, ok := cfg.Params["quiet"].(bool); ok {
		t.quiet = q
	}

	switch {
	case t.botToken == "":
		return fmt.Errorf("telegram: bot_token is required")
	case t.chatID == "":
		return fmt.Errorf("telegram: chat_id is required")
	}

	if t.client == nil {
		t.client = &http.Client{Timeout: defaultTimeout}
	}
	if d := cfg.Duration("timeout"); d > 0 {
		t.client.Timeout = d
	}
	return nil
}

func (t *Telegram) Send(ctx context.Context, alert notifier.Alert) error {
	return t.sendMessage(ctx, formatAlert(alert), t.silent(alert.Severity))
}

// SendBatch posts a digest, split across messages when it outgrows the
// API limit. Alerts are never cut in half.
func (t *Telegram) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	silent := true
	for _, a := range alerts {
		silent = silent && t.silent(a.Severity)
	}

	header := fmt.Sprintf("🔔 <b>%d Journal Alerts</b>\n\n", len(alerts))
	var chunk strings.Builder
	chunk.WriteString(header)
	entries := 0
	for _, a := range alerts {
		text := formatAlert(a)
		if entries > 0 && chunk.Len()+len(separator)+len(text) > maxMessageLen {
			if err := t.sendMessage(ctx, chunk.String(), silent); err != nil {
				return err
			}
			chunk.Reset()
			entries = 0
		}
		if entries > 0 {
			chunk.WriteString(separator)
		}
		chunk.WriteString(text)
		entries++
	}
	return t.sendMessage(ctx, chunk.String(), silent)
}

func (t *Telegram) silent(s notifier.Severity) bool {
	return t.quiet && s != notifier.SeverityCritical
}

func severityEmoji(s notifier.Severity) string {
	switch s {
	case notifier.SeverityCritical:
		return "🛑"
	case notifier.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// formatAlert renders an alert as Telegram HTML. User text is escaped.
func formatAlert(alert notifier.Alert) string {
	title := alert.Title
	if title == "" {
		title = alert.Rule
	}

	lines := []string{
		fmt.Sprintf("%s <b>%s</b>", severityEmoji(alert.Severity), html.EscapeString(title)),
	}
	who := "👤 " + html.EscapeString(alert.UserID)
	if alert.AccountID != "" {
		who += " · " + html.EscapeString(alert.AccountID)
	}
	lines = append(lines, who)
	if alert.Message != "" {
		lines = append(lines, "💡 "+html.EscapeString(alert.Message))
	}

	keys := make([]string, 0, len(alert.Metrics))
	for k := range alert.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("📊 %s: %.2f", html.EscapeString(k), alert.Metrics[k]))
	}

	lines = append(lines, "⏰ "+alert.At.Format("2006-01-02 15:04:05"))
	return strings.Join(lines, "\n")
}

func (t *Telegram) sendMessage(ctx context.Context, text string, silent bool) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:              t.chatID,
		Text:                text,
		ParseMode:           "HTML",
		DisableNotification: silent,
	})
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != http.StatusOK || (decodeErr == nil && !result.OK) {
		desc := result.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram: API error (status %d): %s", resp.StatusCode, desc)
	}
	return nil
}
