// Package keymap holds the key bindings of every view. The same bindings
// drive key matching and the help screen.
package keymap

import "github.com/charmbracelet/bubbles/key"

// KeyMap groups the bindings by where they apply.
type KeyMap struct {
	// everywhere
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// lists
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	// chat
	Ask         key.Binding
	Sources     key.Binding
	NewQuestion key.Binding
	Clear       key.Binding

	// index
	Remove key.Binding
	Reload key.Binding
}

func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: bind("q", "quit", "q", "ctrl+c"),
		Help: bind("?", "help", "?"),
		Back: bind("esc", "back", "esc"),

		Up:     bind("↑/k", "up", "up", "k"),
		Down:   bind("↓/j", "down", "down", "j"),
		Select: bind("enter", "select", "enter"),

		Ask:         bind("enter", "ask", "enter"),
		Sources:     bind("tab", "sources", "tab"),
		NewQuestion: bind("n", "new question", "n", "tab"),
		Clear:       bind("c", "clear", "c"),

		Remove: bind("d", "remove", "d", "delete"),
		Reload: bind("r", "reload", "r"),
	}
}

// ShortHelp is shown while typing a question.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Sources, k.Back}
}

// SourcesHelp is shown while browsing the sources of an answer.
func (k *KeyMap) SourcesHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.Clear, k.Back}
}

func (k *KeyMap) MenuHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k *KeyMap) IndexHelp() []key.Binding {
	return []key.Binding{k.Remove, k.Reload, k.Back, k.Quit}
}

// FullHelp lists every binding in columns for the help screen.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Ask, k.Sources, k.NewQuestion, k.Clear},
		{k.Remove, k.Reload, k.Back},
		{k.Help, k.Quit},
	}
}
