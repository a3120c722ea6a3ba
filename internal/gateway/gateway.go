// Package gateway issues task-specific requests to a remote text-generation
// service and returns the raw results. It holds no session state between
// calls, never retries, and imposes no timeout of its own.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyperengineering/pavilion/internal/types"
)

// Provider names accepted in Config.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModel is used for every call when Config.Model is empty.
const DefaultModel = "gemini-3-flash-preview"

var (
	// ErrMissingCredential matches any *ConfigError.
	ErrMissingCredential = errors.New("AI gateway credential not configured")
	// ErrUpstream wraps transport and remote service failures.
	ErrUpstream = errors.New("AI gateway request failed")
	// ErrEmptyInput is returned for blank queries, titles and messages.
	ErrEmptyInput = errors.New("input is empty")
	// ErrUnknownProvider is returned by New for an unrecognised provider.
	ErrUnknownProvider = errors.New("unknown AI provider")
)

// ConfigError reports gateway configuration that makes every call impossible.
type ConfigError struct {
	Provider string
	Setting  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gateway %s: %s is not set", e.Provider, e.Setting)
}

// Is lets errors.Is(err, ErrMissingCredential) match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingCredential
}

// Config selects the backend and model.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the OpenAI-compatible endpoint.
	BaseURL string
}

// SearchResult is the raw reply of a trending-book search.
type SearchResult struct {
	Text      string
	Citations []types.Citation
}

// Client runs the portal's AI tasks against one Generator.
type Client struct {
	gen   Generator
	model string
}

// New builds a Client for cfg. It fails fast with a *ConfigError when no
// credential is configured, before any network activity.
func New(ctx context.Context, cfg Config) (*Client, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGemini
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Provider: provider, Setting: "API key"}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	var gen Generator
	var err error
	switch provider {
	case ProviderGemini:
		gen, err = NewGeminiGenerator(ctx, cfg.APIKey, model)
	case ProviderOpenAI:
		gen = NewOpenAIGenerator(cfg.APIKey, model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, err
	}
	return &Client{gen: gen, model: model}, nil
}

// Model returns the model identifier every call uses.
func (c *Client) Model() string { return c.model }

// Provider returns the backend name.
func (c *Client) Provider() string { return c.gen.Name() }

func (c *Client) call(ctx context.Context, op string, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.gen.Generate(ctx, req)
	if err != nil {
		slog.Warn("gateway call failed",
			"component", "gateway",
			"op", op,
			"provider", c.gen.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
	}
	slog.Debug("gateway call",
		"component", "gateway",
		"op", op,
		"provider", c.gen.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"response_len", len(resp.Text),
		"citations", len(resp.Citations),
	)
	return resp, nil
}

// SearchTrendingBooks asks for books matching query with web search enabled.
func (c *Client) SearchTrendingBooks(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: %w", ErrEmptyInput)
	}
	resp, err := c.call(ctx, "search", Request{Prompt: searchPrompt(query), WebSearch: true})
	if err != nil {
		return nil, err
	}
	citations := resp.Citations
	if citations == nil {
		citations = []types.Citation{}
	}
	return &SearchResult{Text: resp.Text, Citations: citations}, nil
}

// BookGuide returns a markdown reading guide for title.
func (c *Client) BookGuide(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("guide: %w", ErrEmptyInput)
	}
	resp, err := c.call(ctx, "guide", Request{Prompt: guidePrompt(title)})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return NoGuideText, nil
	}
	return resp.Text, nil
}

// DailyWisdom returns JSON text shaped like a types.WisdomQuote.
func (c *Client) DailyWisdom(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "wisdom", Request{Prompt: wisdomPrompt, Schema: wisdomSchema})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// DailyQuiz returns JSON text shaped like a types.QuizItem.
func (c *Client) DailyQuiz(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "quiz", Request{Prompt: quizPrompt, Schema: quizSchema})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// ChatWithScholar sends message after the prior turns and returns the reply.
// The caller resubmits the full history on every call.
func (c *Client) ChatWithScholar(ctx context.Context, history []types.ConversationTurn, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("chat: %w", ErrEmptyInput)
	}
	resp, err := c.call(ctx, "chat", Request{System: ScholarPersona, History: history, Prompt: message})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Disabled is a gateway whose every call fails with Err. It stands in for a
// Client when credentials are missing so the rest of the portal keeps working.
type Disabled struct {
	Err error
}

func (d Disabled) SearchTrendingBooks(context.Context, string) (*SearchResult, error) {
	return nil, d.Err
}

func (d Disabled) BookGuide(context.Context, string) (string, error) { return "", d.Err }

func (d Disabled) DailyWisdom(context.Context) (string, error) { return "", d.Err }

func (d Disabled) DailyQuiz(context.Context) (string, error) { return "", d.Err }

func (d Disabled) ChatWithScholar(context.Context, []types.ConversationTurn, string) (string, error) {
	return "", d.Err
}

func (d Disabled) Model() string { return "" }

func (d Disabled) Provider() string { return "disabled" }
