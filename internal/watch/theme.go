package watch

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors used by the watch TUI.
type Theme struct {
	Primary        lipgloss.Color // title, cursor
	Secondary      lipgloss.Color // selected row text
	Error          lipgloss.Color // fail verdicts, fetch errors
	Success        lipgloss.Color // pass verdicts
	Warning        lipgloss.Color // in-flight fetch
	Text           lipgloss.Color
	TextMuted      lipgloss.Color // hints, timestamps
	BackgroundElem lipgloss.Color // selected row background
	Border         lipgloss.Color
}

func DarkTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#fab283"),
		Secondary:      lipgloss.Color("#5c9cf5"),
		Error:          lipgloss.Color("#e06c75"),
		Success:        lipgloss.Color("#7fd88f"),
		Warning:        lipgloss.Color("#f5a742"),
		Text:           lipgloss.Color("#eeeeee"),
		TextMuted:      lipgloss.Color("#808080"),
		BackgroundElem: lipgloss.Color("#1e1e1e"),
		Border:         lipgloss.Color("#484848"),
	}
}

func LightTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#b35c00"),
		Secondary:      lipgloss.Color("#0550ae"),
		Error:          lipgloss.Color("#cf222e"),
		Success:        lipgloss.Color("#116329"),
		Warning:        lipgloss.Color("#bf8700"),
		Text:           lipgloss.Color("#1f2328"),
		TextMuted:      lipgloss.Color("#656d76"),
		BackgroundElem: lipgloss.Color("#f6f8fa"),
		Border:         lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	selected lipgloss.Style
	pass     lipgloss.Style
	fail     lipgloss.Style
	busy     lipgloss.Style
	dim      lipgloss.Style
	text     lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:   lipgloss.NewStyle().Foreground(t.Border),
		selected: lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Background(t.BackgroundElem),
		pass:     lipgloss.NewStyle().Foreground(t.Success),
		fail:     lipgloss.NewStyle().Foreground(t.Error),
		busy:     lipgloss.NewStyle().Foreground(t.Warning),
		dim:      lipgloss.NewStyle().Foreground(t.TextMuted),
		text:     lipgloss.NewStyle().Foreground(t.Text),
	}
}
