// Package veracity implements the veracity pipeline node: it asks a model
// whether a candidate answer answers a query and rewrites the payload when
// the model does not confirm it.
//
// The node only builds the prompt and reads the first reply. Model access,
// retries and timeouts belong to the injected completion.Completer and to
// the caller's context.
package veracity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/veracity-node/internal/completion"
	"github.com/timvw/veracity-node/internal/events"
	"github.com/timvw/veracity-node/internal/logging"
	"github.com/timvw/veracity-node/internal/model"
	ppotel "github.com/timvw/veracity-node/internal/otel"
)

var (
	// ErrInvalidArgument is returned when query or results is missing or
	// has an unsupported type. No model call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSupported is returned by RunBatch.
	ErrNotSupported = errors.New("not supported")
)

var tracer = otel.Tracer("veracity-node")

// Config is the model configuration forwarded with every completion call.
type Config struct {
	// Model is the model identifier. Empty means the completer's default.
	Model string
	// APIKey overrides the completer's configured key when non-empty.
	APIKey string
	// Options are model keyword options passed through to the completer.
	Options map[string]any
}

// Node is the veracity pipeline node. It is safe for concurrent use when
// its Completer is.
type Node struct {
	completer completion.Completer
	cfg       Config
	provider  string
	logger    *zap.Logger
	metrics   *ppotel.Metrics
	recorder  Recorder
}

// Recorder receives one event per completed run. *events.Store implements it.
type Recorder interface {
	Record(e events.Event) error
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the node's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.logger = logging.OrNop(l) }
}

// WithMetrics sets the metric counters. nil disables metrics.
func WithMetrics(m *ppotel.Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithRecorder records every completed run. nil disables recording.
func WithRecorder(r Recorder) Option {
	return func(n *Node) { n.recorder = r }
}

// New creates a node. It stores cfg and performs no validation or network
// activity; the options map is copied.
func New(c completion.Completer, cfg Config, opts ...Option) *Node {
	if cfg.Options != nil {
		copied := make(map[string]any, len(cfg.Options))
		for k, v := range cfg.Options {
			copied[k] = v
		}
		cfg.Options = copied
	}

	provider := "custom"
	if p, ok := c.(completion.Provider); ok {
		provider = p.Provider()
	}

	n := &Node{
		completer: c,
		cfg:       cfg,
		provider:  provider,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run checks whether results answers query and returns the payload to
// forward along EdgeOutput1.
//
// The payload is {query, results} with extra merged on top, so extra wins
// on key collisions. When the model's first reply does not contain "true"
// (case-insensitive), results is replaced by model.RejectedResults.
//
// In the prompt, query is presented as the context and results as the
// question.
func (n *Node) Run(ctx context.Context, query, results any, extra map[string]any) (model.Payload, model.Edge, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "veracity.run",
		trace.WithAttributes(
			attribute.String("veracity.run_id", runID),
			attribute.String("veracity.model", n.cfg.Model),
			attribute.String("veracity.provider", n.provider),
		))
	defer span.End()

	log := n.logger.With(zap.String("run_id", runID))

	prompt, field, err := renderPrompt(query, results)
	if err != nil {
		n.metrics.RecordInvalidInput(ctx, field)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("rejected run", zap.Error(err))
		return nil, "", err
	}

	start := time.Now()
	reply, err := n.completer.Complete(ctx, completion.Request{
		Prompt:  prompt,
		Model:   n.cfg.Model,
		APIKey:  n.cfg.APIKey,
		Options: n.cfg.Options,
	})
	if err != nil {
		n.metrics.RecordCompletionError(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		log.Error("completion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, "", fmt.Errorf("completion failed: %w", err)
	}
	if reply == nil {
		reply = &model.Completion{}
	}
	n.metrics.RecordTokens(ctx, n.provider, n.cfg.Model, reply.Usage.InputTokens, reply.Usage.OutputTokens)

	payload := model.Payload{
		model.KeyQuery:   query,
		model.KeyResults: results,
	}
	for k, v := range extra {
		payload[k] = v
	}

	verdict := model.Judge(reply)
	if verdict == model.VerdictFail {
		payload[model.KeyResults] = model.RejectedResults
	}

	n.metrics.RecordVerdict(ctx, string(verdict))
	span.SetAttributes(attribute.String("veracity.verdict", string(verdict)))
	elapsed := time.Since(start)
	log.Debug("verdict",
		zap.String("verdict", string(verdict)),
		zap.String("reply", reply.First()),
		zap.Int("extra_fields", len(extra)),
		zap.Duration("elapsed", elapsed),
	)
	if n.recorder != nil {
		err := n.recorder.Record(events.Event{
			RunID:        runID,
			Verdict:      string(verdict),
			Provider:     n.provider,
			Model:        n.cfg.Model,
			InputTokens:  reply.Usage.InputTokens,
			OutputTokens: reply.Usage.OutputTokens,
			DurationMs:   elapsed.Milliseconds(),
			TS:           time.Now().UTC(),
		})
		if err != nil {
			log.Warn("record run event", zap.Error(err))
		}
	}

	return payload, model.EdgeOutput1, nil
}

// RunBatch is not supported: it always returns ErrNotSupported and never
// calls the model.
func (n *Node) RunBatch(ctx context.Context, kwargs map[string]any) ([]model.Payload, model.Edge, error) {
	n.logger.Debug("batch run rejected", zap.Int("fields", len(kwargs)))
	return nil, "", fmt.Errorf("%w: batch mode is not implemented for the veracity node", ErrNotSupported)
}
