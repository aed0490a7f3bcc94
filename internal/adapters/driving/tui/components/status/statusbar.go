// Package status renders the one-line footer of the chat view.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
)

type phase int

const (
	idle phase = iota
	asking
	failed
)

// Bar shows what the chat is doing on the left and key hints on the right.
// The chat view drives it through Asking, Answered, Failed and Notify.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model

	phase    phase
	browsing bool
	notice   string
	err      error

	// summary of the last answer
	sources int
	elapsed time.Duration

	width int
}

// NewBar returns an idle bar. Nil arguments select the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(s.Muted)),
		width:   80,
	}
}

// Asking switches to the busy indicator and returns the command that
// starts the spinner.
func (b *Bar) Asking() tea.Cmd {
	b.phase = asking
	b.notice = ""
	b.err = nil
	return b.spinner.Tick
}

// Answered records the summary of a finished answer.
func (b *Bar) Answered(sources int, elapsed time.Duration) {
	b.phase = idle
	b.sources = sources
	b.elapsed = elapsed
}

// Failed shows err until the next question or notice.
func (b *Bar) Failed(err error) {
	b.phase = failed
	b.err = err
}

// Notify shows a transient notice in place of the answer summary.
func (b *Bar) Notify(notice string) {
	if b.phase == failed {
		b.phase = idle
	}
	b.notice = notice
}

// Browse toggles the source list key hints.
func (b *Bar) Browse(on bool) {
	b.browsing = on
}

// Busy reports whether a question is in flight.
func (b *Bar) Busy() bool {
	return b.phase == asking
}

// Reset forgets everything but the width.
func (b *Bar) Reset() {
	b.phase = idle
	b.browsing = false
	b.notice = ""
	b.err = nil
	b.sources = 0
	b.elapsed = 0
}

func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Update advances the spinner. Ticks arriving after the answer are dropped,
// which stops the animation.
func (b *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || b.phase != asking {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(tick)
	return b, cmd
}

func (b *Bar) View() string {
	left, right := b.status(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) status() string {
	switch {
	case b.phase == asking:
		return b.spinner.View() + b.styles.Muted.Render(" Thinking...")
	case b.phase == failed && b.err != nil:
		return b.styles.Error.Render("Error: " + b.err.Error())
	case b.notice != "":
		return b.styles.Warning.Render(b.notice)
	case b.sources > 0:
		return b.styles.Normal.Render(fmt.Sprintf("%d sources in %s", b.sources, b.elapsed.Round(time.Millisecond)))
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.browsing {
		bindings = b.keymap.SourcesHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		parts = append(parts, describe(kb))
	}
	return b.styles.Muted.Render(strings.Join(parts, " | "))
}

func describe(kb key.Binding) string {
	h := kb.Help()
	return h.Key + ": " + h.Desc
}
