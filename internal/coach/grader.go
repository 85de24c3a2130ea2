package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/analytics"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/llm"
)

// TradeGrade is the model's verdict on one trade.
type TradeGrade struct {
	TradeID string `json:"tradeId"`
	Grade   string `json:"grade"`
	Reason  string `json:"reason"`
}

// ExecutionGrade is the graded execution history.
type ExecutionGrade struct {
	OverallGrade string       `json:"overallGrade"`
	QualityScore float64      `json:"qualityScore"`
	Summary      string       `json:"summary"`
	TradeGrades  []TradeGrade `json:"tradeGrades"`
}

type gradeInput struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	PnL        float64  `json:"pnl"`
	IsPlanned  bool     `json:"isPlanned"`
	Discipline int      `json:"discipline"`
	Stress     int      `json:"stress"`
	Sequence   int      `json:"sequence"`
	Mistakes   []string `json:"mistakes"`
}

// Grader grades execution history against account rules.
type Grader struct {
	llm    llm.Provider
	logger *zap.Logger
}

// NewGrader creates a grader.
func NewGrader(provider llm.Provider, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grader{llm: provider, logger: logger}
}

// Grade asks the model for an execution grade. Overtrading means a
// reported sequence number above the account's daily limit, or above
// analytics.DefaultMaxTradesPerDay without an account.
func (g *Grader) Grade(ctx context.Context, trades []core.Trade, acct *core.Account) (*ExecutionGrade, error) {
	if len(trades) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no trades to grade"))
	}
	limit := analytics.DefaultMaxTradesPerDay
	if acct != nil && acct.MaxTradesPerDay > 0 {
		limit = acct.MaxTradesPerDay
	}

	prompt, err := gradePrompt(trades, limit)
	if err != nil {
		return nil, err
	}
	resp, err := g.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: graderSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    2048,
		Temperature:  0.2,
		Schema:       gradeSchema,
		SchemaName:   "execution_grade",
	})
	if err != nil {
		return nil, llmError(ctx, err)
	}

	var grade ExecutionGrade
	if err := llm.DecodeJSON(resp.Content, &grade); err != nil {
		g.logger.Warn("unparseable grade reply", zap.Error(err))
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	normalizeGrade(&grade, trades)
	g.logger.Info("execution graded",
		zap.String("grade", grade.OverallGrade),
		zap.Float64("score", grade.QualityScore),
		zap.Int("trades", len(trades)))
	return &grade, nil
}

func gradePrompt(trades []core.Trade, limit int) (string, error) {
	inputs := make([]gradeInput, len(trades))
	for i, t := range trades {
		seq := t.TradeSequenceNum
		if seq == 0 {
			seq = 1
		}
		mistakes := t.Mistakes
		if mistakes == nil {
			mistakes = []string{}
		}
		inputs[i] = gradeInput{
			ID:         t.ID,
			Symbol:     t.Symbol,
			PnL:        t.PnL,
			IsPlanned:  t.IsPlanned,
			Discipline: t.DisciplineRating,
			Stress:     t.StressLevel,
			Sequence:   seq,
			Mistakes:   mistakes,
		}
	}
	data, err := jsoniter.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("encoding trades: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Grade the following execution history.\n")
	sb.WriteString(fmt.Sprintf("Account Rules: Max %d trades per day.\n\n", limit))
	sb.WriteString("Strictly penalize \"Overtrading\" (sequence > limit) and \"Impulsive\" entries (isPlanned false).\n")
	sb.WriteString("Reward high discipline scores and \"Planned\" entries.\n\n")
	sb.WriteString("Data: ")
	sb.Write(data)
	sb.WriteString("\n\nProvide:\n")
	sb.WriteString("1. An overall letter grade (A+, A, B, C, D, or F).\n")
	sb.WriteString("2. A numerical \"Execution Quality Score\" (0-100).\n")
	sb.WriteString("3. A brief institutional summary (1-2 sentences).\n")
	sb.WriteString("4. Individual grades for each trade ID.\n")
	return sb.String(), nil
}

var letterGrades = map[string]bool{"A+": true, "A": true, "B": true, "C": true, "D": true, "F": true}

// normalizeGrade clamps the score and drops grades for unknown trade ids.
func normalizeGrade(g *ExecutionGrade, trades []core.Trade) {
	g.OverallGrade = strings.ToUpper(strings.TrimSpace(g.OverallGrade))
	if !letterGrades[g.OverallGrade] {
		g.OverallGrade = ""
	}
	switch {
	case g.QualityScore < 0:
		g.QualityScore = 0
	case g.QualityScore > 100:
		g.QualityScore = 100
	}

	known := make(map[string]bool, len(trades))
	for _, t := range trades {
		known[t.ID] = true
	}
	kept := g.TradeGrades[:0]
	for _, tg := range g.TradeGrades {
		if known[tg.TradeID] {
			tg.Grade = strings.ToUpper(strings.TrimSpace(tg.Grade))
			kept = append(kept, tg)
		}
	}
	g.TradeGrades = kept
}

// llmError maps provider failures to core codes.
func llmError(ctx context.Context, err error) error {
	var apiErr *llm.APIError
	if ctx.Err() == context.DeadlineExceeded || (errors.As(err, &apiErr) && apiErr.Timeout()) {
		return core.WrapError(core.ErrLLMTimeout, err)
	}
	return core.WrapError(core.ErrLLMFailed, err)
}
