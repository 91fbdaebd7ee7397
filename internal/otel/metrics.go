package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "veracity-node"

// Metrics holds all OTEL metric instruments for the veracity node.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter

	// Verdicts partitioned by outcome (pass, fail)
	Verdicts metric.Int64Counter

	InvalidInputs    metric.Int64Counter
	CompletionErrors metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- LLM token counters ---

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	// --- Node counters ---

	m.Verdicts, err = meter.Int64Counter("veracity.verdicts",
		metric.WithDescription("Verdicts produced, partitioned by outcome (pass, fail)"))
	if err != nil {
		return nil, err
	}

	m.InvalidInputs, err = meter.Int64Counter("veracity.invalid_inputs",
		metric.WithDescription("Runs rejected before the model call because query or results was missing"))
	if err != nil {
		return nil, err
	}

	m.CompletionErrors, err = meter.Int64Counter("veracity.completion_errors",
		metric.WithDescription("Runs whose model-completion call failed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}

// RecordVerdict records a verdict with the given outcome.
func (m *Metrics) RecordVerdict(ctx context.Context, verdict string) {
	if m == nil {
		return
	}
	m.Verdicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", verdict),
	))
}

// RecordInvalidInput records a run rejected for a missing argument.
func (m *Metrics) RecordInvalidInput(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.InvalidInputs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", field),
	))
}

// RecordCompletionError records a failed model-completion call.
func (m *Metrics) RecordCompletionError(ctx context.Context) {
	if m == nil {
		return
	}
	m.CompletionErrors.Add(ctx, 1)
}
