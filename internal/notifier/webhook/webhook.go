// Package webhook posts alerts as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/newthinker/zella/internal/notifier"
)

const (
	DefaultTimeout  = 10 * time.Second
	SignatureHeader = "X-Zella-Signature"
	EventHeader     = "X-Zella-Event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Webhook delivers alerts to one URL. With a secret set, each body is
// signed as "sha256=<hex hmac>" in SignatureHeader.
type Webhook struct {
	url     string
	secret  []byte
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// New creates a webhook for url.
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: DefaultTimeout},
		now:     time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Init reads url, secret, headers and timeout from cfg.
func (w *Webhook) Init(cfg notifier.Config) error {
	if url := cfg.String("url"); url != "" {
		w.url = url
	}
	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}
	if !strings.HasPrefix(w.url, "http://") && !strings.HasPrefix(w.url, "https://") {
		return fmt.Errorf("webhook: url %q must be http(s)", w.url)
	}
	if secret := cfg.String("secret"); secret != "" {
		w.secret = []byte(secret)
	}
	if headers := cfg.StringMap("headers"); headers != nil {
		w.headers = headers
	}

	timeout := cfg.Duration("timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	w.client = &http.Client{Timeout: timeout}
	if w.now == nil {
		w.now = time.Now
	}
	return nil
}

type payload struct {
	Event  string           `json:"event"`
	SentAt time.Time        `json:"sent_at"`
	Count  int              `json:"count"`
	Alert  *notifier.Alert  `json:"alert,omitempty"`
	Alerts []notifier.Alert `json:"alerts,omitempty"`
}

func (w *Webhook) Send(ctx context.Context, alert notifier.Alert) error {
	return w.post(ctx, payload{Event: "alert", Count: 1, Alert: &alert})
}

func (w *Webhook) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return w.post(ctx, payload{Event: "digest", Count: len(alerts), Alerts: alerts})
}

// sign returns the signature header value for body.
func (w *Webhook) sign(body []byte) string {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	p.SentAt = w.now().UTC()
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: building request: %w", err)
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, p.Event)
	req.Header.Set("X-Zella-Timestamp", strconv.FormatInt(p.SentAt.Unix(), 10))
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, w.sign(body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s answered %d", w.url, resp.StatusCode)
	}
	return nil
}
