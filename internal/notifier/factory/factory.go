// Package factory builds the configured alert notifiers.
package factory

import (
	"fmt"
	"strings"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/notifier"
	"github.com/newthinker/zella/internal/notifier/email"
	"github.com/newthinker/zella/internal/notifier/telegram"
	"github.com/newthinker/zella/internal/notifier/webhook"
)

// New initializes one notifier per config entry and registers them. The
// optional min_severity param limits what a notifier receives. An empty
// list yields an empty registry.
func New(cfgs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for i, cfg := range cfgs {
		var n notifier.Notifier
		switch strings.ToLower(cfg.Type) {
		case "webhook":
			n = &webhook.Webhook{}
		case "telegram":
			n = telegram.New("", "")
		case "email":
			n = email.New("", 0, "", "", "", nil)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifiers[%d]: unknown type %q", i, cfg.Type))
		}
		if err := n.Init(cfg); err != nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifiers[%d]: %w", i, err))
		}
		floor := notifier.SeverityInfo
		if s := cfg.String("min_severity"); s != "" {
			floor = notifier.Severity(strings.ToLower(s))
		}
		if err := reg.RegisterFor(n, floor); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifiers[%d]: %w", i, err))
		}
	}
	return reg, nil
}
