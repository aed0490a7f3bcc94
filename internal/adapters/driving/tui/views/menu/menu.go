// Package menu is the start screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
)

type entry struct {
	label  string
	hint   string
	target messages.ViewType
	quit   bool
}

var entries = []entry{
	{label: "Chat", hint: "ask questions about your documents", target: messages.ViewChat},
	{label: "Index", hint: "browse and remove indexed sources", target: messages.ViewIndex},
	{label: "Help", hint: "key bindings", target: messages.ViewHelp},
	{label: "Quit", quit: true},
}

// View lists the destinations, numbered so a digit opens one directly.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	cursor int
	// nil until the index view has loaded once
	stats *domain.IndexStats

	width, height int
	ready         bool
}

func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{styles: s, keymap: km, help: help.New(), width: 80, height: 24}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Up):
			v.cursor = max(v.cursor-1, 0)
		case key.Matches(msg, v.keymap.Down):
			v.cursor = min(v.cursor+1, len(entries)-1)
		case key.Matches(msg, v.keymap.Select):
			return v, v.open(v.cursor)
		case key.Matches(msg, v.keymap.Quit):
			return v, tea.Quit
		default:
			if i, ok := digit(msg); ok {
				v.cursor = i
				return v, v.open(i)
			}
		}
	}
	return v, nil
}

// digit maps "1".."n" to an entry index.
func digit(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || int(s[0]-'1') >= len(entries) {
		return 0, false
	}
	return int(s[0] - '1'), true
}

func (v *View) open(i int) tea.Cmd {
	e := entries[i]
	if e.quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: e.target} }
}

// SetIndex records the index summary shown under the title.
func (v *View) SetIndex(stats domain.IndexStats) {
	v.stats = &stats
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	lines := []string{
		v.styles.Title.Render("Recall"),
		"",
		v.styles.Muted.Render("Answers from your documents"),
	}
	if st := v.stats; st != nil {
		lines = append(lines, v.styles.Muted.Render(
			fmt.Sprintf("%s: %d documents, %d chunks", st.Name, st.Documents, st.Chunks)))
	}
	lines = append(lines, "")

	for i, e := range entries {
		marker, label := "  ", v.styles.Normal.Render(e.label)
		if i == v.cursor {
			marker, label = "> ", v.styles.Selected.Render(e.label)
		}
		line := fmt.Sprintf("%s%d. %s", marker, i+1, label)
		if e.hint != "" {
			line += "  " + v.styles.Muted.Render(e.hint)
		}
		lines = append(lines, line)
	}

	v.help.Width = v.width
	lines = append(lines, "", v.help.ShortHelpView(v.keymap.MenuHelp()))
	return strings.Join(lines, "\n")
}

func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// Selected returns the index of the highlighted entry.
func (v *View) Selected() int {
	return v.cursor
}
