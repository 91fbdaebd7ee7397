// Package completion provides the model-completion capability used by the
// veracity node: a prompt goes in, one or more candidate text replies come out.
//
// Retry, backoff and timeouts are left to the provider SDKs and to the
// caller's context. Nothing here interprets a reply.
package completion

import (
	"context"

	"github.com/timvw/veracity-node/internal/model"
)

// Request is a single completion call.
type Request struct {
	// Prompt is the fully rendered prompt text.
	Prompt string
	// Model overrides the completer's configured model when non-empty.
	Model string
	// APIKey overrides the completer's configured key when non-empty.
	APIKey string
	// Options are model keyword options (e.g. "temperature", "max_tokens").
	Options map[string]any
}

// Completer sends a prompt to a model and returns its candidate replies.
type Completer interface {
	Complete(ctx context.Context, req Request) (*model.Completion, error)
}

// CompleterFunc adapts a plain function to a Completer.
type CompleterFunc func(ctx context.Context, req Request) (*model.Completion, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (*model.Completion, error) {
	return f(ctx, req)
}

// Provider is implemented by the SDK-backed completers.
type Provider interface {
	Completer

	// Provider returns the provider name (e.g., "anthropic", "openai", "genai").
	Provider() string

	// Model returns the default model name.
	Model() string
}
