package coach

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/llm"
)

// MaxInsights is the number of insights an audit returns at most.
const MaxInsights = 3

// InsightType classifies an insight.
type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightNegative InsightType = "negative"
	InsightNeutral  InsightType = "neutral"
)

// Insight is one observation from the performance audit.
type Insight struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Type    InsightType `json:"type"`
}

type auditInput struct {
	Symbol     string  `json:"symbol"`
	PnL        float64 `json:"pnl"`
	Setup      string  `json:"setup"`
	Discipline int     `json:"discipline"`
	Stress     int     `json:"stress"`
	IsPlanned  bool    `json:"isPlanned"`
	Notes      string  `json:"notes"`
}

// Auditor produces short performance insights.
type Auditor struct {
	llm    llm.Provider
	logger *zap.Logger
}

// NewAuditor creates an auditor.
func NewAuditor(provider llm.Provider, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{llm: provider, logger: logger}
}

// Insights returns at most MaxInsights observations with normalized types.
func (a *Auditor) Insights(ctx context.Context, trades []core.Trade) ([]Insight, error) {
	if len(trades) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no trades to audit"))
	}

	inputs := make([]auditInput, len(trades))
	for i, t := range trades {
		inputs[i] = auditInput{
			Symbol:     t.Symbol,
			PnL:        t.PnL,
			Setup:      t.Setup,
			Discipline: t.DisciplineRating,
			Stress:     t.StressLevel,
			IsPlanned:  t.IsPlanned,
			Notes:      t.Notes,
		}
	}
	data, err := jsoniter.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("encoding trades: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze these recent executions:
%s

Focus on the correlation between discipline, stress levels, and actual P&L.
Identify if "Impulsive" trades or "Overtrading" are hurting the equity curve.

Provide a professional analysis in JSON format with exactly %d distinct insights.`, data, MaxInsights)

	resp, err := a.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: auditorSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    1536,
		Temperature:  0.5,
		Schema:       insightSchema,
		SchemaName:   "performance_insights",
	})
	if err != nil {
		return nil, llmError(ctx, err)
	}

	var reply struct {
		Insights []Insight `json:"insights"`
	}
	if err := llm.DecodeJSON(resp.Content, &reply); err != nil {
		a.logger.Warn("unparseable audit reply", zap.Error(err))
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	return normalizeInsights(reply.Insights), nil
}

func normalizeInsights(in []Insight) []Insight {
	out := make([]Insight, 0, MaxInsights)
	for _, ins := range in {
		if len(out) == MaxInsights {
			break
		}
		if strings.TrimSpace(ins.Title) == "" && strings.TrimSpace(ins.Content) == "" {
			continue
		}
		switch InsightType(strings.ToLower(strings.TrimSpace(string(ins.Type)))) {
		case InsightPositive:
			ins.Type = InsightPositive
		case InsightNegative:
			ins.Type = InsightNegative
		default:
			ins.Type = InsightNeutral
		}
		out = append(out, ins)
	}
	return out
}
