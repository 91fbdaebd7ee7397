package completion

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/veracity-node/internal/model"
)

// AnthropicCompleter completes prompts using the Anthropic Messages API.
// Works with both direct Anthropic API and Azure AI Foundry.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicConfig holds configuration for the Anthropic completer.
type AnthropicConfig struct {
	// BaseURL is the API endpoint (e.g., "https://resource.services.ai.azure.com/anthropic/v1").
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the default model name (e.g., "claude-sonnet-4-5").
	Model string
	// MaxTokens is the default maximum number of output tokens.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

// NewAnthropicCompleter creates a new Anthropic completer.
func NewAnthropicCompleter(cfg AnthropicConfig) *AnthropicCompleter {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Provider returns "anthropic".
func (c *AnthropicCompleter) Provider() string {
	return "anthropic"
}

// Model returns the default model name.
func (c *AnthropicCompleter) Model() string {
	return c.model
}

// Complete sends the prompt as a single user message. Each text content
// block of the response becomes one reply. The "max_tokens" option sets
// MaxTokens; every other option is written into the request body as-is.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (*model.Completion, error) {
	modelName := c.model
	if req.Model != "" {
		modelName = req.Model
	}

	maxTokens, extra, err := splitMaxTokens(req.Options, c.maxTokens)
	if err != nil {
		return nil, err
	}

	var reqOpts []option.RequestOption
	if req.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(req.APIKey))
	}
	for _, k := range sortedKeys(extra) {
		reqOpts = append(reqOpts, option.WithJSONSet(k, extra[k]))
	}

	ctx, span := startChatSpan(ctx, c.Provider(), modelName, maxTokens, req.Prompt)
	defer span.End()

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	}, reqOpts...)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	completion := &model.Completion{
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			completion.Replies = append(completion.Replies, block.Text)
		}
	}
	if len(completion.Replies) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	var finish []string
	if string(resp.StopReason) != "" {
		finish = []string{string(resp.StopReason)}
	}
	recordChatResult(span, string(resp.Model), completion, finish)

	return completion, nil
}
