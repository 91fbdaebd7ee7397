package events

import (
	"testing"
	"time"
)

func TestValidate_MinimalValidEvent(t *testing.T) {
	e := Event{RunID: "r1", Verdict: VerdictPass, TS: time.Now().UTC()}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestValidate_MissingRunID(t *testing.T) {
	e := Event{Verdict: VerdictPass, TS: time.Now().UTC()}
	if err := e.Validate(); err == nil {
		t.Fatalf("expected missing run_id validation error")
	}
}

func TestValidate_InvalidVerdict(t *testing.T) {
	e := Event{RunID: "r1", Verdict: "maybe", TS: time.Now().UTC()}
	if err := e.Validate(); err == nil {
		t.Fatalf("expected invalid verdict validation error")
	}
}

func TestValidate_MissingTimestamp(t *testing.T) {
	e := Event{RunID: "r1", Verdict: VerdictFail}
	if err := e.Validate(); err == nil {
		t.Fatalf("expected missing timestamp validation error")
	}
}

func TestIsRejected(t *testing.T) {
	if !IsRejected(VerdictFail) {
		t.Fatalf("fail should be rejected")
	}
	if IsRejected(VerdictPass) {
		t.Fatalf("pass should not be rejected")
	}
}
