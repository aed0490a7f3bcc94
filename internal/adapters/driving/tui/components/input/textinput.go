// Package input is the single-line question field of the chat view.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
)

const (
	maxQuestion = 1024
	minWidth    = 20
	// label and border
	chrome = 10
)

// QuestionInput is a focused textinput with a label. Value, SetValue,
// Focus, Blur, Focused and Reset come from the embedded model.
type QuestionInput struct {
	textinput.Model
	styles *styles.Styles
}

func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}
	m := textinput.New()
	m.Placeholder = "Ask a question..."
	m.CharLimit = maxQuestion
	m.Width = 50
	m.Focus()
	return &QuestionInput{Model: m, styles: s}
}

// Init starts the cursor blinking.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.Model, cmd = q.Model.Update(msg)
	return q, cmd
}

func (q *QuestionInput) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		q.styles.Title.Render("Ask: "),
		q.styles.InputField.Render(q.Model.View()))
}

// SetWidth fits the field into a terminal of the given width.
func (q *QuestionInput) SetWidth(width int) {
	q.Width = max(width-chrome, minWidth)
}
