package completion

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/timvw/veracity-node/internal/model"
)

// GenAICompleter completes prompts using the Google Gemini API.
type GenAICompleter struct {
	client    *genai.Client
	cfg       GenAIConfig
	maxTokens int64
}

// GenAIConfig holds configuration for the GenAI completer.
type GenAIConfig struct {
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the default model name (e.g., "gemini-2.0-flash").
	Model string
	// MaxTokens is the default maximum number of output tokens.
	MaxTokens int64
}

// NewGenAICompleter creates a new GenAI completer.
func NewGenAICompleter(ctx context.Context, cfg GenAIConfig) (*GenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := newGenAIClient(ctx, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GenAICompleter{
		client:    client,
		cfg:       cfg,
		maxTokens: maxTokens,
	}, nil
}

func newGenAIClient(ctx context.Context, baseURL, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// Provider returns "genai".
func (c *GenAICompleter) Provider() string {
	return "genai"
}

// Model returns the default model name.
func (c *GenAICompleter) Model() string {
	return c.cfg.Model
}

// Complete sends the prompt to GenerateContent. Each candidate becomes one
// reply. Options map onto GenerateContentConfig; unknown options are rejected
// because the Gemini SDK has no raw request-body hook.
func (c *GenAICompleter) Complete(ctx context.Context, req Request) (*model.Completion, error) {
	modelName := c.cfg.Model
	if req.Model != "" {
		modelName = req.Model
	}

	maxTokens, extra, err := splitMaxTokens(req.Options, c.maxTokens)
	if err != nil {
		return nil, err
	}
	genCfg, err := generateContentConfig(maxTokens, extra)
	if err != nil {
		return nil, err
	}

	client := c.client
	if req.APIKey != "" && req.APIKey != c.cfg.APIKey {
		client, err = newGenAIClient(ctx, c.cfg.BaseURL, req.APIKey)
		if err != nil {
			return nil, err
		}
	}

	ctx, span := startChatSpan(ctx, c.Provider(), modelName, maxTokens, req.Prompt)
	defer span.End()

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(req.Prompt), genCfg)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("GenAI API call failed: %w", err)
	}

	completion := &model.Completion{}
	if resp.UsageMetadata != nil {
		completion.Usage = model.TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	var finish []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		completion.Replies = append(completion.Replies, b.String())
		if cand.FinishReason != "" {
			finish = append(finish, string(cand.FinishReason))
		}
	}
	if len(completion.Replies) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("GenAI API returned empty response")
	}

	recordChatResult(span, modelName, completion, finish)

	return completion, nil
}

// generateContentConfig maps model options onto the GenAI request config.
func generateContentConfig(maxTokens int64, opts map[string]any) (*genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	for _, k := range sortedKeys(opts) {
		v := opts[k]
		switch k {
		case "temperature":
			f, err := toFloat32(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			cfg.Temperature = genai.Ptr(f)
		case "top_p":
			f, err := toFloat32(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			cfg.TopP = genai.Ptr(f)
		case "top_k":
			f, err := toFloat32(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			cfg.TopK = genai.Ptr(f)
		case "candidate_count", "n":
			n, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			cfg.CandidateCount = int32(n)
		case "stop", "stop_sequences":
			s, err := toStrings(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			cfg.StopSequences = s
		default:
			return nil, fmt.Errorf("unsupported GenAI option %q", k)
		}
	}
	return cfg, nil
}
