// Package ollama talks to a local Ollama server so coaching can run
// without sending journal data to a hosted model.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/newthinker/zella/internal/llm"
)

const (
	DefaultEndpoint = "http://localhost:11434"
	DefaultModel    = "llama3.1:8b"
	DefaultTimeout  = 5 * time.Minute
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Provider. Zero values select the defaults.
type Options struct {
	Endpoint string
	Model    string
	// KeepAlive is how long the server keeps the model loaded after a
	// reply, in Ollama duration syntax ("10m", "-1").
	KeepAlive string
	Timeout   time.Duration
}

// Provider implements llm.Provider against the Ollama chat API.
type Provider struct {
	endpoint  string
	model     string
	keepAlive string
	client    *http.Client
}

// New creates a provider for the given endpoint and model.
func New(endpoint, model string) (*Provider, error) {
	return NewWithOptions(Options{Endpoint: endpoint, Model: model})
}

// NewWithOptions creates a provider from opts.
func NewWithOptions(opts Options) (*Provider, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(opts.Endpoint, "http://") && !strings.HasPrefix(opts.Endpoint, "https://") {
		return nil, fmt.Errorf("endpoint %q must be an http(s) URL", opts.Endpoint)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Provider{
		endpoint:  strings.TrimRight(opts.Endpoint, "/"),
		model:     opts.Model,
		keepAlive: opts.KeepAlive,
		client:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (p *Provider) Name() string {
	return "ollama"
}

type chatRequest struct {
	Model     string              `json:"model"`
	Messages  []message           `json:"messages"`
	Stream    bool                `json:"stream"`
	KeepAlive string              `json:"keep_alive,omitempty"`
	Options   map[string]any      `json:"options,omitempty"`
	Format    jsoniter.RawMessage `json:"format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message         message `json:"message"`
	DoneReason      string  `json:"done_reason,omitempty"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

// buildRequest maps a coach request onto the Ollama wire shape. A schema
// is passed through as the format constraint.
func (p *Provider) buildRequest(req llm.ChatRequest) chatRequest {
	msgs := make([]message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, message{Role: m.Role, Content: m.Content})
	}

	out := chatRequest{
		Model:     p.model,
		Messages:  msgs,
		KeepAlive: p.keepAlive,
		Options:   map[string]any{"num_predict": req.Tokens()},
	}
	if req.Temperature > 0 {
		out.Options["temperature"] = req.Temperature
	}
	switch {
	case len(req.Schema) > 0:
		out.Format = jsoniter.RawMessage(req.Schema)
	case req.JSONMode:
		out.Format = jsoniter.RawMessage(`"json"`)
	}
	return out
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &llm.ChatResponse{
		Content: out.Message.Content,
		Usage: llm.Usage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
		},
		FinishReason: out.DoneReason,
	}, nil
}

// apiError reads Ollama's {"error": "..."} body when there is one.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &llm.APIError{Provider: "ollama", Status: resp.StatusCode, Message: msg}
}
