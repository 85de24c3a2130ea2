// Package factory builds the configured LLM provider.
package factory

import (
	"fmt"
	"strings"

	"github.com/newthinker/zella/internal/config"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/llm"
	"github.com/newthinker/zella/internal/llm/claude"
	"github.com/newthinker/zella/internal/llm/ollama"
	"github.com/newthinker/zella/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// name means the coach is disabled and yields (nil, nil).
func New(cfg config.LLMConfig) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "claude":
		p, err = provider(claude.NewWithBaseURL(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL))
	case "openai":
		p, err = provider(openai.NewWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL))
	case "ollama":
		p, err = provider(ollama.NewWithOptions(ollama.Options{
			Endpoint:  cfg.Ollama.Endpoint,
			Model:     cfg.Ollama.Model,
			KeepAlive: cfg.Ollama.KeepAlive,
			Timeout:   cfg.Ollama.Timeout,
		}))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s: %w", cfg.Provider, err))
	}
	return p, nil
}

// provider keeps a failed constructor from leaking a typed nil.
func provider[P llm.Provider](p P, err error) (llm.Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
