package coach

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/llm"
)

// DefaultMaxTurns bounds the history replayed to the model per user.
const DefaultMaxTurns = 20

// Mindset holds one coaching conversation per user.
type Mindset struct {
	llm      llm.Provider
	logger   *zap.Logger
	maxTurns int

	mu       sync.Mutex
	sessions map[string][]llm.Message
}

// NewMindset creates a mindset coach. maxTurns <= 0 uses DefaultMaxTurns.
func NewMindset(provider llm.Provider, maxTurns int, logger *zap.Logger) *Mindset {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Mindset{
		llm:      provider,
		logger:   logger,
		maxTurns: maxTurns,
		sessions: make(map[string][]llm.Message),
	}
}

// Send appends text to the user's conversation and returns the reply. A
// failed call leaves the history unchanged.
func (m *Mindset) Send(ctx context.Context, user, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.WrapError(core.ErrNoData, fmt.Errorf("empty message"))
	}

	m.mu.Lock()
	history := append(append([]llm.Message(nil), m.sessions[user]...), llm.Message{Role: "user", Content: text})
	m.mu.Unlock()

	resp, err := m.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: MindsetInstruction,
		Messages:     history,
		MaxTokens:    1024,
		Temperature:  0.7,
	})
	if err != nil {
		m.logger.Warn("mindset chat failed", zap.String("user", user), zap.Error(err))
		return "", llmError(ctx, err)
	}

	history = append(history, llm.Message{Role: "assistant", Content: resp.Content})
	if limit := m.maxTurns * 2; len(history) > limit {
		history = history[len(history)-limit:]
	}
	m.mu.Lock()
	m.sessions[user] = history
	m.mu.Unlock()
	return resp.Content, nil
}

// History returns a copy of the user's conversation.
func (m *Mindset) History(user string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Message(nil), m.sessions[user]...)
}

// Reset forgets the user's conversation.
func (m *Mindset) Reset(user string) {
	m.mu.Lock()
	delete(m.sessions, user)
	m.mu.Unlock()
}
