package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/views/sources"
)

// App routes messages to the active view. The help screen has no view of
// its own; it renders the key map.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	menuView    *menu.View
	chatView    *chat.View
	sourcesView *sources.View
	current     messages.ViewType

	err error

	width, height int
	ready         bool
}

var _ tea.Model = (*App)(nil)

func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		help:        h,
		menuView:    menu.NewView(s, km),
		chatView:    chat.NewView(s, km, ports.Answer),
		sourcesView: sources.NewView(s, km, ports.Index),
		current:     messages.ViewMenu,
	}, nil
}

// WithContext sets the context handed to service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.sourcesView.WithContext(ctx)
	return a
}

// StartIn opens the app on view instead of the menu.
func (a *App) StartIn(view messages.ViewType) *App {
	a.current = view
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.SetWindowTitle("recall"), a.enter(a.current))
}

// enter returns the command a view needs when it becomes active.
func (a *App) enter(view messages.ViewType) tea.Cmd {
	switch view {
	case messages.ViewChat:
		return a.chatView.Init()
	case messages.ViewIndex:
		return a.sourcesView.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a, a.press(msg)

	case messages.ViewChanged:
		a.current = msg.View
		return a, a.enter(msg.View)

	case messages.AnswerCompleted:
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		a.err = a.chatView.Err()
		return a, cmd

	case messages.IndexLoaded:
		if msg.Err == nil {
			a.menuView.SetIndex(msg.Stats)
		}
		return a, a.toIndex(msg)

	case messages.SourceRemoved:
		return a, a.toIndex(msg)

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.current != messages.ViewChat {
			return a, nil
		}

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

func (a *App) press(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	// chat owns every other key, including esc and the help key
	if a.current == messages.ViewChat {
		return a.forward(msg)
	}
	switch {
	case key.Matches(msg, a.keymap.Back) && a.current != messages.ViewMenu:
		a.current = messages.ViewMenu
		return nil
	case key.Matches(msg, a.keymap.Help):
		a.current = messages.ViewHelp
		return nil
	}
	return a.forward(msg)
}

func (a *App) toIndex(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	a.sourcesView, cmd = a.sourcesView.Update(msg)
	a.err = a.sourcesView.Err()
	return cmd
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.current {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewIndex:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
	case messages.ViewHelp:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, a.keymap.Quit) {
			cmd = tea.Quit
		}
	}
	return cmd
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.current {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewIndex:
		return a.sourcesView.View()
	case messages.ViewHelp:
		return a.helpView()
	}
	return a.menuView.View()
}

func (a *App) helpView() string {
	a.help.Width = a.width
	return strings.Join([]string{
		a.styles.Title.Render("Help"),
		"",
		a.help.View(a.keymap),
		"",
		a.styles.Muted.Render("esc: back to menu"),
	}, "\n")
}

// Run blocks until the program exits or the context is cancelled.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

func (a *App) CurrentView() messages.ViewType { return a.current }

func (a *App) Chat() *chat.View { return a.chatView }

// Sources returns the index view.
func (a *App) Sources() *sources.View { return a.sourcesView }

// Err returns the last error reported by a view.
func (a *App) Err() error { return a.err }

func (a *App) Ready() bool { return a.ready }

// SetDimensions resizes every view, not only the active one.
func (a *App) SetDimensions(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.sourcesView.SetDimensions(width, height)
}
