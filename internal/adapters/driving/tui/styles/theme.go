// Package styles holds the colours and lipgloss styles shared by the TUI
// views.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette. Each colour has a light and a dark terminal
// variant.
type Theme struct {
	Accent    lipgloss.AdaptiveColor
	Info      lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Faint     lipgloss.AdaptiveColor
	Good      lipgloss.AdaptiveColor
	Caution   lipgloss.AdaptiveColor
	Bad       lipgloss.AdaptiveColor
	Frame     lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor
	User      lipgloss.AdaptiveColor
	Assistant lipgloss.AdaptiveColor
}

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func DefaultTheme() *Theme {
	return &Theme{
		Accent:    adaptive("#0F766E", "#14B8A6"),
		Info:      adaptive("#1D4ED8", "#60A5FA"),
		Text:      adaptive("#1E1E2E", "#CDD6F4"),
		Faint:     adaptive("#8C8FA1", "#6C7086"),
		Good:      adaptive("#40A02B", "#A6E3A1"),
		Caution:   adaptive("#DF8E1D", "#F9E2AF"),
		Bad:       adaptive("#D20F39", "#F38BA8"),
		Frame:     adaptive("#BCC0CC", "#45475A"),
		Bar:       adaptive("#E6E9EF", "#181825"),
		User:      adaptive("#FE640B", "#FAB387"),
		Assistant: adaptive("#0F766E", "#14B8A6"),
	}
}

// Styles are built once per theme and shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// conversation
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Reply          lipgloss.Style // width set by the chat view
}

func NewStyles(t *Theme) *Styles {
	if t == nil {
		t = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	bold := func(c lipgloss.AdaptiveColor) lipgloss.Style { return fg(c).Bold(true) }

	return &Styles{
		theme:    t,
		Title:    bold(t.Accent),
		Subtitle: bold(t.Info),
		Normal:   fg(t.Text),
		Muted:    fg(t.Faint),
		Selected: bold(t.Text).Background(t.Accent),

		Error:   fg(t.Bad),
		Success: fg(t.Good),
		Warning: fg(t.Caution),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Frame).
			Padding(0, 1),
		StatusBar: fg(t.Faint).Background(t.Bar).Padding(0, 1),

		UserLabel:      bold(t.User),
		AssistantLabel: bold(t.Assistant),
		Reply:          fg(t.Text).PaddingLeft(2),
	}
}

func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

func (s *Styles) Theme() *Theme {
	return s.theme
}
