// ABOUTME: OpenAI-backed Completer built on langchaingo
// ABOUTME: Maps conversation roles to chat messages and retries once on failure

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/2389/hearth/internal/store"
)

// OpenAIClient talks to the OpenAI chat completions API (or any
// compatible endpoint via a custom base URL).
type OpenAIClient struct {
	llm     llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// OpenAIOptions configures NewOpenAIClient.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string

	// Timeout bounds each completion attempt. Zero means 30s.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewOpenAIClient builds a Completer over the OpenAI API.
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	oaOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		oaOpts = append(oaOpts, openai.WithBaseURL(opts.BaseURL))
	}

	model, err := openai.New(oaOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: creating client: %w", err)
	}

	return &OpenAIClient{
		llm:     model,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}, nil
}

// Complete implements Completer. Transient failures get one retry.
func (c *OpenAIClient) Complete(ctx context.Context, conv store.Conversation, params Params) (store.Message, error) {
	messages := toMessageContent(Trim(conv, params))

	callOpts := []llms.CallOption{
		llms.WithTemperature(params.Temperature),
	}
	if params.Model != "" {
		callOpts = append(callOpts, llms.WithModel(params.Model))
	}
	if params.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(params.MaxTokens))
	}

	reply, err := c.attempt(ctx, messages, callOpts)
	if err != nil {
		if ctx.Err() != nil {
			return store.Message{}, err
		}
		c.logger.Warn("completion failed, retrying once", "error", err)
		reply, err = c.attempt(ctx, messages, callOpts)
	}
	if err != nil {
		return store.Message{}, err
	}

	return store.Message{Role: store.RoleAssistant, Content: reply}, nil
}

func (c *OpenAIClient) attempt(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("completion finished",
		"messages", len(messages), "duration", time.Since(start))
	return resp.Choices[0].Content, nil
}

// toMessageContent converts a stored conversation to the wire shape
// langchaingo expects.
func toMessageContent(conv store.Conversation) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(conv))
	for _, m := range conv {
		var typ llms.ChatMessageType
		switch m.Role {
		case store.RoleSystem:
			typ = llms.ChatMessageTypeSystem
		case store.RoleAssistant:
			typ = llms.ChatMessageTypeAI
		default:
			typ = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(typ, m.Content))
	}
	return out
}
