package risk

import (
	"fmt"

	"github.com/newthinker/zella/internal/core"
)

// CheckResult is the outcome of checking a trade against account rules.
type CheckResult struct {
	// Allowed is false when any rule was breached.
	Allowed bool `json:"allowed"`
	// Reasons lists each breached rule.
	Reasons []string `json:"reasons,omitempty"`
}

// CheckAccount validates trade t against the prop rules of acct, given the
// other trades already journaled on the same calendar day. Rules with a
// zero limit are not enforced. The journal records the trade regardless;
// the result is informational.
func CheckAccount(acct core.Account, sameDay []core.Trade, t core.Trade) CheckResult {
	var reasons []string

	if acct.MaxTradesPerDay > 0 {
		n := len(sameDay) + 1
		if t.TradeSequenceNum > n {
			n = t.TradeSequenceNum
		}
		if n > acct.MaxTradesPerDay {
			reasons = append(reasons, fmt.Sprintf("max trades per day exceeded: %d > %d", n, acct.MaxTradesPerDay))
		}
	}

	if acct.MaxLots > 0 && t.Quantity > acct.MaxLots {
		reasons = append(reasons, fmt.Sprintf("position size too large: %g > %g lots", t.Quantity, acct.MaxLots))
	}

	dayPnL := t.PnL
	for _, o := range sameDay {
		dayPnL += o.PnL
	}
	if acct.MaxLossPerDay > 0 && -dayPnL >= acct.MaxLossPerDay {
		reasons = append(reasons, fmt.Sprintf("daily loss limit reached: %.2f >= %.2f", -dayPnL, acct.MaxLossPerDay))
	}
	if acct.DailyDrawdownLimit > 0 && acct.Balance > 0 {
		ddPct := -dayPnL / acct.Balance * 100
		if ddPct >= acct.DailyDrawdownLimit {
			reasons = append(reasons, fmt.Sprintf("daily drawdown limit reached: %.2f%% >= %.2f%%", ddPct, acct.DailyDrawdownLimit))
		}
	}

	return CheckResult{Allowed: len(reasons) == 0, Reasons: reasons}
}
