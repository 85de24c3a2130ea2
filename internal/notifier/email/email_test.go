package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/notifier"
)

type capture struct {
	addr string
	to   []string
	msg  string
	err  error
}

func (c *capture) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	c.addr = addr
	c.to = to
	c.msg = string(msg)
	return c.err
}

func newTestEmail(c *capture) *Email {
	e := New("smtp.example.com", 0, "", "", "zella@example.com", []string{"trader@example.com"})
	e.sendMail = c.send
	e.now = func() time.Time { return time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC) }
	return e
}

func alert(sev notifier.Severity) notifier.Alert {
	return notifier.Alert{
		Rule:      "daily_loss",
		Severity:  sev,
		UserID:    "alice",
		AccountID: "ftmo-100k",
		Title:     "Daily loss limit",
		Message:   "daily_pnl -620.00 < -500",
		At:        time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
	}
}

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Init(t *testing.T) {
	e := &Email{}
	assert.Error(t, e.Init(notifier.Config{Params: map[string]any{}}))

	err := e.Init(notifier.Config{Params: map[string]any{
		"host": "smtp.example.com",
		"from": "zella@example.com",
		"to":   []any{"a@example.com", "b@example.com"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", e.host)
	assert.Equal(t, defaultPort, e.port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, e.to)
}

func TestEmail_Send(t *testing.T) {
	c := &capture{}
	e := newTestEmail(c)
	require.NoError(t, e.Init(notifier.Config{}))

	require.NoError(t, e.Send(context.Background(), alert(notifier.SeverityCritical)))
	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.Equal(t, []string{"trader@example.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Zella Alert: Daily loss limit\r\n")
	assert.Contains(t, c.msg, "Content-Type: text/plain")
	assert.Contains(t, c.msg, "Account: ftmo-100k")
	assert.Contains(t, c.msg, "Date: Mon, 04 Mar 2024 16:00:00 +0000\r\n")
}

func TestEmail_SubjectPrefix(t *testing.T) {
	c := &capture{}
	e := newTestEmail(c)
	require.NoError(t, e.Init(notifier.Config{Params: map[string]any{"subject_prefix": "[journal]"}}))

	a := alert(notifier.SeverityInfo)
	a.Title = ""
	a.AccountID = ""
	require.NoError(t, e.Send(context.Background(), a))
	assert.Contains(t, c.msg, "Subject: [journal] Alert: daily_loss\r\n")
	assert.Contains(t, c.msg, "Account: -\n")
}

func TestEmail_SendBatchHTML(t *testing.T) {
	c := &capture{}
	e := newTestEmail(c)

	require.NoError(t, e.SendBatch(context.Background(), nil))
	assert.Empty(t, c.msg)

	require.NoError(t, e.SendBatch(context.Background(), []notifier.Alert{
		alert(notifier.SeverityWarning),
		alert(notifier.SeverityCritical),
	}))
	assert.Contains(t, c.msg, "Subject: Zella Digest: 2 Journal Alerts")
	assert.Contains(t, c.msg, "Content-Type: text/html")
	assert.Contains(t, c.msg, "#dc3545")
	assert.Contains(t, c.msg, "#ffc107")
	assert.Less(t, strings.Index(c.msg, "#dc3545"), strings.Index(c.msg, "#ffc107"), "critical rows come first")
	assert.Contains(t, c.msg, "Generated at: 2024-03-04 16:00:00")
	assert.Contains(t, c.msg, "-620.00 &lt; -500")
}

func TestEmail_SendFailure(t *testing.T) {
	e := newTestEmail(&capture{err: errors.New("connection refused")})
	err := e.Send(context.Background(), alert(notifier.SeverityInfo))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmail_CanceledContext(t *testing.T) {
	c := &capture{}
	e := newTestEmail(c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Send(ctx, alert(notifier.SeverityInfo)), context.Canceled)
	assert.Empty(t, c.addr)
}
