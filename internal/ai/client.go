// Package ai implements the conflict resolution service on top of the
// Anthropic Messages API.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultMaxTokens caps the reply, which carries whole files.
	DefaultMaxTokens = 16384
)

// ErrNoAPIKey is returned by New when no key is configured.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY not set")

// Config holds the service settings.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string

	MaxTokens int64

	// MaxRetries is passed to the SDK. The resolver's timeout bounds the
	// whole call including retries.
	MaxRetries int

	Logger *slog.Logger
}

// Client resolves conflicts with a single Messages API call per round.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

var _ resolver.Service = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.With("component", "ai"),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Resolve sends the conflict set and parses the resolved files out of the
// reply.
func (c *Client) Resolve(ctx context.Context, req resolver.Request) (resolver.Response, error) {
	prompt := buildPrompt(req)
	c.logger.Debug("sending resolution request", "model", c.model, "files", len(req.Files), "prompt_bytes", len(prompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return resolver.Response{}, &resolver.ServiceError{Op: "request", Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		return resolver.Response{}, &resolver.ServiceError{Op: "parse", Err: errors.New("reply truncated at max_tokens")}
	}

	resp, err := parseResponse(text.String())
	if err != nil {
		return resolver.Response{}, &resolver.ServiceError{Op: "parse", Err: err}
	}

	c.logger.Debug("resolution reply parsed", "files", len(resp.Files),
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return resp, nil
}
