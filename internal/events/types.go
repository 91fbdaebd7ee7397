package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/timvw/veracity-node/internal/model"
)

const (
	VerdictPass = string(model.VerdictPass)
	VerdictFail = string(model.VerdictFail)
)

// Event records the outcome of one veracity run.
type Event struct {
	RunID        string    `json:"run_id"`
	Verdict      string    `json:"verdict"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int64     `json:"input_tokens,omitempty"`
	OutputTokens int64     `json:"output_tokens,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	TS           time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.RunID) == "" {
		return fmt.Errorf("run_id is required")
	}
	if !isValidVerdict(e.Verdict) {
		return fmt.Errorf("invalid verdict %q", e.Verdict)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// IsRejected reports whether the run rewrote the results field.
func IsRejected(verdict string) bool {
	return verdict == VerdictFail
}

func isValidVerdict(verdict string) bool {
	switch verdict {
	case VerdictPass, VerdictFail:
		return true
	default:
		return false
	}
}
