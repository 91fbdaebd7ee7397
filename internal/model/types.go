package model

import "strings"

// Edge is the name of an outgoing pipeline edge.
type Edge string

// EdgeOutput1 is the only outgoing edge of the veracity node. Pass and fail
// verdicts are both forwarded along it; the verdict is carried in the payload.
const EdgeOutput1 Edge = "output_1"

// Payload keys written by the veracity node.
const (
	KeyQuery   = "query"
	KeyResults = "results"
)

// RejectedResults replaces the results field when the model does not confirm
// that the results answer the query.
const RejectedResults = "The question was not answered correctly"

// Payload is the mapping forwarded to the next pipeline stage.
type Payload map[string]any

// Verdict is the pass/fail interpretation of a model reply.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Completion is the result of a single model-completion call.
type Completion struct {
	// Replies holds the candidate completions in provider order.
	// Only the first one is consulted for the verdict.
	Replies []string `json:"replies"`

	// Usage is populated by provider completers; stubs may leave it zero.
	Usage TokenUsage `json:"usage,omitempty"`
}

// First returns the first reply, or "" when there is none.
func (c *Completion) First() string {
	if c == nil || len(c.Replies) == 0 {
		return ""
	}
	return c.Replies[0]
}

// TokenUsage tracks LLM token consumption for a single completion.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// IsAffirmative reports whether reply contains "true", ignoring case.
// This is a plain substring test, so "not true" is affirmative too.
func IsAffirmative(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "true")
}

// Judge maps a completion to a verdict. A missing reply fails closed.
func Judge(c *Completion) Verdict {
	if IsAffirmative(c.First()) {
		return VerdictPass
	}
	return VerdictFail
}
