// Package alert watches journal activity and notifies traders when a
// trading day crosses a discipline threshold.
package alert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/newthinker/zella/internal/notifier"
)

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?\d+(?:\.\d+)?)$`)

// Rule defines an alert rule over day metrics, e.g. "daily_pnl < -500".
type Rule struct {
	Name     string            `mapstructure:"name" json:"name"`
	Expr     string            `mapstructure:"expr" json:"expr"`
	Severity notifier.Severity `mapstructure:"severity" json:"severity"`
	Title    string            `mapstructure:"title" json:"title,omitempty"`
	Message  string            `mapstructure:"message" json:"message,omitempty"`
}

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r *Rule) parse() (condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(m) != 4 {
		return condition{}, fmt.Errorf("rule %s: cannot parse %q (want \"metric op number\")", r.Name, r.Expr)
	}
	v, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return condition{metric: m[1], op: m[2], threshold: v}, nil
}

// Validate checks the name, severity and expression of r.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.Name, r.Severity)
	}
	c, err := r.parse()
	if err != nil {
		return err
	}
	if !isMetric(c.metric) {
		return fmt.Errorf("rule %s: unknown metric %q", r.Name, c.metric)
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics. A malformed
// expression or a missing metric never fires.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}
	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the value that fired it.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := r.Message
	if msg == "" {
		msg = r.Expr
	}
	if c, err := r.parse(); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg = fmt.Sprintf("%s (%s = %s)", msg, c.metric, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(r.Severity)), r.Name, msg)
}

// DefaultRules returns the built-in discipline rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "loss_streak",
			Expr:     "consecutive_losses >= 3",
			Severity: notifier.SeverityWarning,
			Title:    "Losing streak",
			Message:  "three or more losses in a row today; step away before the next entry",
		},
		{
			Name:     "unplanned_trades",
			Expr:     "unplanned_today >= 3",
			Severity: notifier.SeverityWarning,
			Title:    "Off-plan trading",
			Message:  "several trades today were not in the plan",
		},
		{
			Name:     "low_discipline",
			Expr:     "avg_discipline_today < 5",
			Severity: notifier.SeverityInfo,
			Title:    "Discipline slipping",
			Message:  "average self-rated discipline today is below 5",
		},
	}
}

// ValidateRules validates each rule and rejects duplicate names.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return err
		}
		if seen[rules[i].Name] {
			return fmt.Errorf("duplicate rule %s", rules[i].Name)
		}
		seen[rules[i].Name] = true
	}
	return nil
}

// ruleNames lists rule names in order, for logging.
func ruleNames(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	sort.Strings(out)
	return out
}
