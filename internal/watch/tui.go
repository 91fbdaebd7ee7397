// Package watch is a terminal dashboard for a running veracity server. It
// polls GET /v1/verdicts and lists recent runs, newest first.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/veracity-node/internal/events"
)

type viewMode int

const (
	modeList viewMode = iota
	modeFilter
)

// Fetcher loads run events. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rejectedOnly bool) ([]events.Event, error)
}

type fetchResultMsg struct {
	events []events.Event
	err    error
}

// tickMsg carries the generation it was scheduled under; older ticks are dropped.
type tickMsg struct{ gen int }

type TUI struct {
	Fetcher         Fetcher
	RefreshInterval time.Duration // 0 disables auto-refresh
	Theme           Theme
	RejectedOnly    bool
}

type tuiModel struct {
	fetcher         Fetcher
	ctx             context.Context
	refreshInterval time.Duration
	st              styles

	all     []events.Event // newest first
	visible []events.Event // all, narrowed by filterText
	cursor  int
	mode    viewMode

	rejectedOnly bool
	filterText   string
	filter       textinput.Model

	width  int
	height int

	fetching   bool
	message    string
	fetchCount int
	tickGen    int
}

func newModel(ctx context.Context, t *TUI) *tuiModel {
	ti := textinput.New()
	ti.Placeholder = "provider, model or run id"
	ti.CharLimit = 256
	ti.Width = 40

	return &tuiModel{
		fetcher:         t.Fetcher,
		ctx:             ctx,
		refreshInterval: t.RefreshInterval,
		st:              newStyles(t.Theme),
		rejectedOnly:    t.RejectedOnly,
		filter:          ti,
	}
}

func (t *TUI) Run(ctx context.Context) error {
	p := tea.NewProgram(newModel(ctx, t), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *tuiModel) Init() tea.Cmd {
	m.fetching = true
	return m.fetchAndTick()
}

// scheduleTick returns nil when auto-refresh is disabled. Each call
// supersedes any tick still pending.
func (m *tuiModel) scheduleTick() tea.Cmd {
	if m.refreshInterval <= 0 {
		return nil
	}
	m.tickGen++
	gen := m.tickGen
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *tuiModel) fetchAndTick() tea.Cmd {
	fetch := m.doFetch()
	if tick := m.scheduleTick(); tick != nil {
		return tea.Batch(fetch, tick)
	}
	return fetch
}

func (m *tuiModel) doFetch() tea.Cmd {
	fetcher := m.fetcher
	ctx := m.ctx
	rejectedOnly := m.rejectedOnly
	return func() tea.Msg {
		evs, err := fetcher.Fetch(ctx, rejectedOnly)
		return fetchResultMsg{events: evs, err: err}
	}
}

// setEvents stores a server snapshot (oldest first) newest first.
func (m *tuiModel) setEvents(evs []events.Event) {
	m.all = make([]events.Event, len(evs))
	for i, e := range evs {
		m.all[len(evs)-1-i] = e
	}
	m.applyFilter()
}

func (m *tuiModel) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filterText))
	m.visible = m.visible[:0]
	for _, e := range m.all {
		if needle == "" ||
			strings.Contains(strings.ToLower(e.Provider), needle) ||
			strings.Contains(strings.ToLower(e.Model), needle) ||
			strings.Contains(strings.ToLower(e.RunID), needle) {
			m.visible = append(m.visible, e)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeFilter {
			return m.handleFilterKey(msg)
		}
		return m.handleListKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fetchResultMsg:
		m.fetching = false
		if msg.err != nil {
			m.message = fmt.Sprintf("Fetch error: %v", msg.err)
		} else {
			m.message = ""
			m.fetchCount++
			m.setEvents(msg.events)
		}
		return m, nil

	case tickMsg:
		if msg.gen != m.tickGen {
			return m, nil
		}
		if m.fetching {
			return m, m.scheduleTick()
		}
		m.fetching = true
		return m, m.fetchAndTick()
	}

	return m, nil
}

func (m *tuiModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "f":
		m.rejectedOnly = !m.rejectedOnly
		m.cursor = 0
		if !m.fetching {
			m.fetching = true
			return m, m.doFetch()
		}
	case "r":
		if !m.fetching {
			m.fetching = true
			return m, m.doFetch()
		}
	case "/":
		m.mode = modeFilter
		m.filter.SetValue(m.filterText)
		m.filter.Focus()
		return m, textinput.Blink
	case "esc":
		if m.filterText != "" {
			m.filterText = ""
			m.applyFilter()
		}
	}
	return m, nil
}

func (m *tuiModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filterText = m.filter.Value()
		m.mode = modeList
		m.filter.Blur()
		m.cursor = 0
		m.applyFilter()
		return m, nil
	case tea.KeyEsc:
		m.mode = modeList
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.st.title.Render("Veracity"))
	b.WriteString("  ")
	if m.mode == modeFilter {
		b.WriteString(m.st.dim.Render("Enter=apply  Esc=cancel"))
	} else {
		failLabel := "f=failed:OFF"
		if m.rejectedOnly {
			failLabel = "f=failed:ON"
		}
		b.WriteString(m.st.dim.Render(fmt.Sprintf("↑↓=select  /=filter  %s  r=refresh  q=quit", failLabel)))
	}
	if m.fetching {
		b.WriteString("  ")
		b.WriteString(m.st.busy.Render("fetching..."))
	}
	b.WriteString("\n")

	b.WriteString(m.summary())
	b.WriteString("\n")

	if m.mode == modeFilter {
		b.WriteString("  Filter: ")
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	} else if m.filterText != "" {
		b.WriteString(m.st.dim.Render(fmt.Sprintf("  filter: %q (Esc clears)", m.filterText)))
		b.WriteString("\n")
	}

	switch {
	case len(m.visible) == 0 && m.fetchCount == 0:
		b.WriteString("  Waiting for verdicts...\n")
	case len(m.visible) == 0:
		b.WriteString("  No runs.\n")
	default:
		b.WriteString(m.st.header.Render(fmt.Sprintf("   %-8s  %-4s  %-32s  %-12s  %-8s  %s",
			"TIME", "VERD", "PROVIDER/MODEL", "TOKENS", "ELAPSED", "RUN")))
		b.WriteString("\n")
		rows := m.height - 5
		if rows < 1 {
			rows = 1
		}
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		for i := start; i < len(m.visible) && i < start+rows; i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
	}

	if m.message != "" {
		b.WriteString(m.st.fail.Render(m.message))
		b.WriteString("\n")
	}
	return b.String()
}

// summary counts verdicts over the unfiltered snapshot.
func (m *tuiModel) summary() string {
	var pass, fail int
	var in, out int64
	for _, e := range m.all {
		if events.IsRejected(e.Verdict) {
			fail++
		} else {
			pass++
		}
		in += e.InputTokens
		out += e.OutputTokens
	}
	return fmt.Sprintf("  runs: %d  %s  %s  %s",
		len(m.all),
		m.st.pass.Render(fmt.Sprintf("pass: %d", pass)),
		m.st.fail.Render(fmt.Sprintf("fail: %d", fail)),
		m.st.dim.Render(fmt.Sprintf("tokens: %s in / %s out", formatTokens(in), formatTokens(out))),
	)
}

func (m *tuiModel) renderRow(i int) string {
	e := m.visible[i]

	icon := m.st.pass.Render("✓")
	verdict := m.st.pass.Render(padRight(e.Verdict, 4))
	if events.IsRejected(e.Verdict) {
		icon = m.st.fail.Render("✗")
		verdict = m.st.fail.Render(padRight(e.Verdict, 4))
	}

	target := e.Provider
	if e.Model != "" {
		target += "/" + e.Model
	}
	rest := fmt.Sprintf("%-32s  %-12s  %-8s  %s",
		truncate(target, 32),
		fmt.Sprintf("%s/%s", formatTokens(e.InputTokens), formatTokens(e.OutputTokens)),
		fmt.Sprintf("%dms", e.DurationMs),
		truncate(e.RunID, 8),
	)
	ts := m.st.dim.Render(e.TS.Local().Format("15:04:05"))

	if i == m.cursor {
		return m.st.selected.Render("›") + " " + icon + " " + ts + "  " + verdict + "  " + m.st.selected.Render(rest)
	}
	return "  " + icon + " " + ts + "  " + verdict + "  " + m.st.text.Render(rest)
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatTokens formats a token count for display (e.g., "12.3k").
func formatTokens(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 10000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.0fk", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
