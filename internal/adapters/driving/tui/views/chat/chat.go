// Package chat is the conversation view: transcript, question input, the
// sources of the last answer and a status bar.
package chat

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Turn is one question and its outcome.
type Turn struct {
	Question string
	Answer   string
	Err      error
}

type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.ChunkList
	statusbar *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	// history is what the generator sees as prior conversation.
	history []domain.ChatMessage
	turns   []Turn
	pending string

	width, height int
	ready         bool
	err           error
	focusInput    bool // false while browsing sources
}

func NewView(s *styles.Styles, km *keymap.KeyMap, answerService driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		list:          list.NewChunkList(s),
		statusbar:     status.NewBar(s, km),
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.press(msg)

	case messages.AnswerCompleted:
		v.record(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.Failed(msg.Err)
		return v, nil
	}

	var barCmd, inputCmd tea.Cmd
	v.statusbar, barCmd = v.statusbar.Update(msg)
	if v.focusInput {
		v.input, inputCmd = v.input.Update(msg)
	}
	return v, tea.Batch(barCmd, inputCmd)
}

// press handles a key. Esc always leaves; other keys go to the input
// while it has focus and move through the sources otherwise.
func (v *View) press(msg tea.KeyMsg) (*View, tea.Cmd) {
	if key.Matches(msg, v.keymap.Back) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		return v.pressTyping(msg)
	}

	switch {
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
	case key.Matches(msg, v.keymap.NewQuestion):
		return v, v.focusQuestion()
	case key.Matches(msg, v.keymap.Clear):
		v.Reset()
		v.statusbar.Notify("conversation cleared")
		return v, v.input.Focus()
	}
	return v, nil
}

func (v *View) pressTyping(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Ask):
		query := strings.TrimSpace(v.input.Value())
		if query == "" || v.pending != "" {
			return v, nil
		}
		v.pending = query
		v.err = nil
		v.input.Reset()
		return v, tea.Batch(v.ask(query, v.History()), v.statusbar.Asking())

	case key.Matches(msg, v.keymap.Sources):
		if v.list.Count() == 0 {
			return v, nil
		}
		v.focusInput = false
		v.input.Blur()
		v.statusbar.Browse(true)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) focusQuestion() tea.Cmd {
	v.focusInput = true
	v.statusbar.Browse(false)
	return v.input.Focus()
}

// ask answers query in the background.
func (v *View) ask(query string, history []domain.ChatMessage) tea.Cmd {
	svc, ctx := v.answerService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.AnswerCompleted{Query: query, Err: ErrNoAnswerService}
		}
		answer, err := svc.Answer(ctx, query, history)
		return messages.AnswerCompleted{Query: query, Answer: answer, Err: err}
	}
}

// record adds the outcome of a question to the transcript. Only answered
// questions join the history handed to the generator.
func (v *View) record(msg messages.AnswerCompleted) {
	v.pending = ""

	if msg.Err != nil || msg.Answer == nil {
		err := msg.Err
		if err == nil {
			err = domain.ErrGenerationFailed
		}
		v.err = err
		v.turns = append(v.turns, Turn{Question: msg.Query, Err: err})
		v.statusbar.Failed(err)
		return
	}

	answer := msg.Answer
	v.turns = append(v.turns, Turn{Question: msg.Query, Answer: answer.Text, Err: answer.Err})
	v.list.SetChunks(answer.Chunks)
	v.statusbar.Answered(len(answer.Chunks), answer.Timings.Total)

	if answer.Err != nil {
		v.err = answer.Err
		v.statusbar.Failed(answer.Err)
		return
	}

	v.err = nil
	v.history = append(v.history,
		domain.ChatMessage{Role: domain.RoleUser, Content: msg.Query},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: answer.Text},
	)
}

func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, v.listHeight())
	v.statusbar.SetWidth(width)
}

func (v *View) Size() (width, height int) { return v.width, v.height }

// Ready reports whether a size was set.
func (v *View) Ready() bool { return v.ready }

// History returns a copy of the conversation handed to the generator.
func (v *View) History() []domain.ChatMessage {
	return slices.Clone(v.history)
}

func (v *View) Turns() []Turn { return v.turns }

// Pending returns the question awaiting an answer, if any.
func (v *View) Pending() string { return v.pending }

// Sources returns the chunks of the last answer.
func (v *View) Sources() []domain.ScoredChunk { return v.list.Chunks() }

func (v *View) SelectedIndex() int { return v.list.Selected() }

// Question is the text in the input.
func (v *View) Question() string { return v.input.Value() }

func (v *View) SetQuestion(q string) { v.input.SetValue(q) }

func (v *View) Err() error { return v.err }

func (v *View) InputFocused() bool { return v.focusInput }

// Reset forgets the conversation and returns focus to the input.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetChunks(nil)
	v.history = nil
	v.turns = nil
	v.pending = ""
	v.err = nil
	v.statusbar.Reset()
}
