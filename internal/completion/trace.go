package completion

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/veracity-node/internal/model"
)

var tracer = otel.Tracer("veracity-node/completion")

// startChatSpan starts a GenAI generation span following the OTel GenAI
// semantic conventions. Span name is "{operation} {model}".
func startChatSpan(ctx context.Context, provider, modelName string, maxTokens int64, prompt string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "chat "+modelName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", modelName),
			attribute.Int64("gen_ai.request.max_tokens", maxTokens),

			// Langfuse-specific: ensure this shows as a "generation"
			attribute.String("langfuse.observation.type", "generation"),
		),
	)

	inputMessages := []map[string]string{
		{"role": "user", "content": prompt},
	}
	if inputJSON, err := json.Marshal(inputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(inputJSON)))
	}
	return ctx, span
}

// recordChatResult adds response attributes to a span started by startChatSpan.
func recordChatResult(span trace.Span, responseModel string, c *model.Completion, finishReasons []string) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", responseModel),
		attribute.Int64("gen_ai.usage.input_tokens", c.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", c.Usage.OutputTokens),
	)
	if len(finishReasons) > 0 {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", finishReasons))
	}

	outputMessages := make([]map[string]string, 0, len(c.Replies))
	for _, r := range c.Replies {
		outputMessages = append(outputMessages, map[string]string{"role": "assistant", "content": r})
	}
	if outputJSON, err := json.Marshal(outputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(outputJSON)))
	}
}
