package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/veracity-node/internal/model"
)

// OpenAICompleter completes prompts using an OpenAI-compatible Chat Completions API.
// Works with OpenAI, Azure OpenAI, and any OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// OpenAIConfig holds configuration for the OpenAI completer.
type OpenAIConfig struct {
	// BaseURL is the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the default model name (e.g., "gpt-4o-mini").
	Model string
	// MaxTokens is the default maximum number of completion tokens.
	// For reasoning models this must be large enough to accommodate both
	// reasoning tokens and output content.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers.
	ExtraHeaders map[string]string
}

// NewOpenAICompleter creates a new OpenAI-compatible completer.
func NewOpenAICompleter(cfg OpenAIConfig) *OpenAICompleter {
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

	return &OpenAICompleter{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Provider returns "openai".
func (c *OpenAICompleter) Provider() string {
	return "openai"
}

// Model returns the default model name.
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete sends the prompt as a single user message. Each returned choice
// becomes one reply, so "n" > 1 yields several replies. The "max_tokens"
// option sets MaxCompletionTokens; every other option is written into the
// request body as-is.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (*model.Completion, error) {
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

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: modelName,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		MaxCompletionTokens: openai.Int(maxTokens),
	}, reqOpts...)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("openai API returned empty response")
	}

	completion := &model.Completion{
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	var finish []string
	for _, choice := range resp.Choices {
		completion.Replies = append(completion.Replies, choice.Message.Content)
		if choice.FinishReason != "" {
			finish = append(finish, string(choice.FinishReason))
		}
	}

	span.SetAttributes(attribute.String("gen_ai.response.id", resp.ID))
	recordChatResult(span, resp.Model, completion, finish)

	return completion, nil
}
