package watch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/veracity-node/internal/events"
)

type stubFetcher struct {
	events       []events.Event
	err          error
	rejectedOnly bool
}

func (s *stubFetcher) Fetch(_ context.Context, rejectedOnly bool) ([]events.Event, error) {
	s.rejectedOnly = rejectedOnly
	return s.events, s.err
}

// sampleEvents returns a server snapshot, oldest first.
func sampleEvents() []events.Event {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []events.Event{
		{RunID: "aaaa1111", Verdict: events.VerdictPass, Provider: "anthropic", Model: "claude-sonnet-4-5", InputTokens: 40, OutputTokens: 1, DurationMs: 320, TS: ts},
		{RunID: "bbbb2222", Verdict: events.VerdictFail, Provider: "openai", Model: "gpt-4o-mini", InputTokens: 1500, OutputTokens: 2, DurationMs: 210, TS: ts.Add(time.Second)},
	}
}

func newTestModel(f Fetcher) *tuiModel {
	m := newModel(context.Background(), &TUI{Fetcher: f, Theme: DarkTheme()})
	m.width, m.height = 120, 40
	return m
}

func TestInit_FetchesAndStoresNewestFirst(t *testing.T) {
	f := &stubFetcher{events: sampleEvents()}
	m := newTestModel(f)

	cmd := m.Init()
	if !m.fetching {
		t.Fatal("expected fetching after Init")
	}
	_, _ = m.Update(cmd())

	if m.fetching {
		t.Error("fetching still set after result")
	}
	if len(m.visible) != 2 || m.visible[0].RunID != "bbbb2222" {
		t.Fatalf("expected newest first, got %+v", m.visible)
	}
	if m.fetchCount != 1 {
		t.Errorf("fetchCount = %d, want 1", m.fetchCount)
	}
}

func TestUpdate_FetchErrorShowsMessage(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	_, _ = m.Update(fetchResultMsg{err: errors.New("connection refused")})

	if !strings.Contains(m.View(), "Fetch error: connection refused") {
		t.Errorf("view does not show fetch error:\n%s", m.View())
	}
}

func TestUpdate_TickSkippedWhileFetching(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	m.fetching = true
	_, cmd := m.Update(tickMsg{})
	if cmd != nil {
		t.Error("expected no command with auto-refresh disabled")
	}
}

func TestManualRefreshKeepsSingleTickChain(t *testing.T) {
	f := &stubFetcher{events: sampleEvents()}
	m := newModel(context.Background(), &TUI{Fetcher: f, Theme: DarkTheme(), RefreshInterval: time.Minute})
	m.width, m.height = 120, 40

	if cmd := m.Init(); cmd == nil {
		t.Fatal("expected fetch and tick from Init")
	}
	first := m.tickGen
	if first != 1 {
		t.Fatalf("tickGen = %d after Init, want 1", first)
	}
	if _, cmd := m.Update(fetchResultMsg{events: f.events}); cmd != nil {
		t.Error("fetch result must not schedule a tick")
	}

	// The pending tick fires: one fetch, one replacement tick.
	if _, cmd := m.Update(tickMsg{gen: first}); cmd == nil {
		t.Fatal("expected fetch on current tick")
	}
	second := m.tickGen
	if second != first+1 {
		t.Fatalf("tickGen = %d after tick, want %d", second, first+1)
	}
	_, _ = m.Update(fetchResultMsg{events: f.events})

	// Manual refresh fetches without starting another tick chain.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("expected fetch on r")
	}
	if m.tickGen != second {
		t.Errorf("r scheduled a tick: tickGen = %d, want %d", m.tickGen, second)
	}
	if _, cmd := m.Update(fetchResultMsg{events: f.events}); cmd != nil {
		t.Error("fetch result after r must not schedule a tick")
	}

	// A superseded tick is dropped.
	if _, cmd := m.Update(tickMsg{gen: first}); cmd != nil {
		t.Error("stale tick produced a command")
	}
	if m.fetching {
		t.Error("stale tick started a fetch")
	}

	if _, cmd := m.Update(tickMsg{gen: second}); cmd == nil {
		t.Error("current tick did not fetch")
	}
}

func TestListKey_Navigation(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	m.setEvents(sampleEvents())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d after down, want 1", m.cursor)
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d after down at end, want 1", m.cursor)
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.cursor != 0 {
		t.Fatalf("cursor = %d after k, want 0", m.cursor)
	}
}

func TestListKey_ToggleFailedOnly(t *testing.T) {
	f := &stubFetcher{events: sampleEvents()}
	m := newTestModel(f)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if !m.rejectedOnly {
		t.Fatal("expected rejectedOnly after f")
	}
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	_ = cmd()
	if !f.rejectedOnly {
		t.Error("fetch did not request rejected runs only")
	}
	if !strings.Contains(m.View(), "f=failed:ON") {
		t.Error("hint does not show failed filter")
	}
}

func TestFilter_NarrowsByModel(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	m.setEvents(sampleEvents())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if m.mode != modeFilter {
		t.Fatal("expected filter mode after /")
	}
	for _, r := range "claude" {
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.mode != modeList {
		t.Fatal("expected list mode after Enter")
	}
	if len(m.visible) != 1 || m.visible[0].RunID != "aaaa1111" {
		t.Fatalf("filter kept %+v", m.visible)
	}

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.visible) != 2 {
		t.Errorf("Esc did not clear filter: %d visible", len(m.visible))
	}
}

func TestView(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	if got := m.View(); !strings.Contains(got, "Waiting for verdicts") {
		t.Errorf("empty view:\n%s", got)
	}

	m.fetchCount = 1
	m.setEvents(sampleEvents())
	got := m.View()
	for _, want := range []string{"runs: 2", "pass: 1", "fail: 1", "openai/gpt-4o-mini", "1.5k/2", "bbbb2222"} {
		if !strings.Contains(got, want) {
			t.Errorf("view missing %q:\n%s", want, got)
		}
	}
}

func TestView_NoSize(t *testing.T) {
	m := newTestModel(&stubFetcher{})
	m.width = 0
	if m.View() != "Loading..." {
		t.Errorf("View() = %q", m.View())
	}
}

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5k"},
		{12345, "12k"},
		{2500000, "2.5M"},
	}
	for _, tt := range tests {
		if got := formatTokens(tt.n); got != tt.want {
			t.Errorf("formatTokens(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
