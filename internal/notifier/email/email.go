// Package email delivers journal alerts over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/zella/internal/notifier"
)

const (
	defaultPort   = 587
	defaultPrefix = "Zella"
	stampLayout   = "2006-01-02 15:04:05"
)

var severityColor = map[notifier.Severity]string{
	notifier.SeverityCritical: "#dc3545",
	notifier.SeverityWarning:  "#ffc107",
	notifier.SeverityInfo:     "#17a2b8",
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends one plain-text mail per alert and one HTML digest per batch.
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	prefix   string

	sendMail sendFunc
	now      func() time.Time
}

func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		prefix:   defaultPrefix,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (e *Email) Name() string { return "email" }

// Init overlays params (host, port, username, password, from, to,
// subject_prefix) onto the constructor values.
func (e *Email) Init(cfg notifier.Config) error {
	overlay := func(dst *string, key string) {
		if v := cfg.String(key); v != "" {
			*dst = v
		}
	}
	overlay(&e.host, "host")
	overlay(&e.username, "username")
	overlay(&e.password, "password")
	overlay(&e.from, "from")
	overlay(&e.prefix, "subject_prefix")
	if port := cfg.Int("port"); port != 0 {
		e.port = port
	}
	if to := cfg.Strings("to"); len(to) > 0 {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if e.port == 0 {
		e.port = defaultPort
	}
	if e.prefix == "" {
		e.prefix = defaultPrefix
	}
	if e.sendMail == nil {
		e.sendMail = smtp.SendMail
	}
	if e.now == nil {
		e.now = time.Now
	}
	return nil
}

func (e *Email) Send(ctx context.Context, alert notifier.Alert) error {
	subject := fmt.Sprintf("%s Alert: %s", e.prefix, titleOf(alert))
	return e.deliver(ctx, subject, "text/plain", plainBody(alert))
}

// SendBatch mails a single digest, most severe alerts first.
func (e *Email) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	sorted := append([]notifier.Alert(nil), alerts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() > sorted[j].Severity.Rank()
	})

	subject := fmt.Sprintf("%s Digest: %d Journal Alerts", e.prefix, len(alerts))
	return e.deliver(ctx, subject, "text/html", e.digestBody(sorted))
}

func titleOf(alert notifier.Alert) string {
	if alert.Title != "" {
		return alert.Title
	}
	return alert.Rule
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plainBody(alert notifier.Alert) string {
	var b strings.Builder
	b.WriteString("Zella Journal Alert\n\n")
	for _, kv := range [][2]string{
		{"Rule", alert.Rule},
		{"Severity", string(alert.Severity)},
		{"User", orDash(alert.UserID)},
		{"Account", orDash(alert.AccountID)},
		{"Message", alert.Message},
		{"Time", alert.At.Format(stampLayout)},
	} {
		fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
	}
	return b.String()
}

func (e *Email) digestBody(alerts []notifier.Alert) string {
	var b strings.Builder
	b.WriteString("<html><body>\n<h2>Zella Journal Alerts</h2>\n")
	fmt.Fprintf(&b, "<p>Generated at: %s</p>\n", e.now().Format(stampLayout))
	b.WriteString(`<table cellpadding="6" style="border-collapse: collapse;">` + "\n")
	b.WriteString("<tr><th>Severity</th><th>Alert</th><th>User</th><th>Account</th><th>Message</th><th>Time</th></tr>\n")
	for _, a := range alerts {
		color, ok := severityColor[a.Severity]
		if !ok {
			color = severityColor[notifier.SeverityInfo]
		}
		fmt.Fprintf(&b, `<tr><td style="color: %s;">%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`+"\n",
			color,
			html.EscapeString(string(a.Severity)),
			html.EscapeString(titleOf(a)),
			html.EscapeString(orDash(a.UserID)),
			html.EscapeString(orDash(a.AccountID)),
			html.EscapeString(a.Message),
			a.At.Format(stampLayout),
		)
	}
	b.WriteString("</table>\n</body></html>")
	return b.String()
}

// deliver sends one message. net/smtp has no context support, so ctx is
// only checked before dialing.
func (e *Email) deliver(ctx context.Context, subject, contentType, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	var msg strings.Builder
	for _, h := range [][2]string{
		{"From", e.from},
		{"To", strings.Join(e.to, ", ")},
		{"Subject", subject},
		{"Date", e.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", contentType + "; charset=UTF-8"},
	} {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	if err := e.sendMail(addr, auth, e.from, e.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
