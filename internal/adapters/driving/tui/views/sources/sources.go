// Package sources is the index view: one row per source_id with its chunk
// count and newest timestamp.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

var ErrNoIndexService = errors.New("index service not available")

// rows of chrome around the list: title, stats, path, notice and help
const chrome = 10

type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model
	index  driving.IndexService
	ctx    context.Context

	stats   domain.IndexStats
	sources []domain.SourceSummary
	cursor  int

	loading bool
	notice  string
	err     error

	width, height int
}

func NewView(s *styles.Styles, km *keymap.KeyMap, index driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		help:   help.New(),
		index:  index,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the index summary.
func (v *View) Init() tea.Cmd {
	return v.reload()
}

func (v *View) reload() tea.Cmd {
	v.loading = true
	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.IndexLoaded{Err: ErrNoIndexService}
		}
		stats, err := index.Stats(ctx)
		if err != nil {
			return messages.IndexLoaded{Err: err}
		}
		listing, err := index.ListDocuments(ctx)
		if err != nil {
			return messages.IndexLoaded{Err: err}
		}
		return messages.IndexLoaded{Stats: stats, Sources: domain.SummariseSources(listing)}
	}
}

func (v *View) remove(sourceID string) tea.Cmd {
	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.SourceRemoved{SourceID: sourceID, Err: ErrNoIndexService}
		}
		n, err := index.RemoveBySourceID(ctx, sourceID)
		return messages.SourceRemoved{SourceID: sourceID, Removed: n, Err: err}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v, v.press(msg)

	case messages.IndexLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.stats = msg.Stats
			v.sources = msg.Sources
			v.cursor = min(v.cursor, max(len(v.sources)-1, 0))
		}

	case messages.SourceRemoved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Removed %d chunks of %s", msg.Removed, msg.SourceID)
		return v, v.reload()
	}
	return v, nil
}

func (v *View) press(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keymap.Up):
		v.cursor = max(v.cursor-1, 0)
	case key.Matches(msg, v.keymap.Down):
		v.cursor = max(min(v.cursor+1, len(v.sources)-1), 0)
	case key.Matches(msg, v.keymap.Remove):
		// chunks without a source_id have nothing to remove them by
		if s, ok := v.current(); ok && s.SourceID != "" {
			return v.remove(s.SourceID)
		}
	case key.Matches(msg, v.keymap.Reload):
		v.notice = ""
		return v.reload()
	case key.Matches(msg, v.keymap.Quit):
		return tea.Quit
	}
	return nil
}

func (v *View) current() (domain.SourceSummary, bool) {
	if v.cursor >= len(v.sources) {
		return domain.SourceSummary{}, false
	}
	return v.sources[v.cursor], true
}

func (v *View) View() string {
	lines := append([]string{v.styles.Title.Render("Index"), ""}, v.body()...)
	v.help.Width = v.width
	lines = append(lines, "", v.help.ShortHelpView(v.keymap.IndexHelp()))
	return strings.Join(lines, "\n")
}

func (v *View) body() []string {
	switch {
	case v.loading:
		return []string{v.styles.Muted.Render("Loading index...")}
	case v.err != nil:
		return []string{v.styles.Error.Render("Error: " + v.err.Error())}
	}

	st := v.stats
	lines := []string{
		v.styles.Subtitle.Render(fmt.Sprintf("%s: %d documents, %d chunks, window %d",
			st.Name, st.Documents, st.Chunks, st.WindowSize)),
		v.styles.Muted.Render(st.Path),
		"",
	}
	if v.notice != "" {
		lines = append(lines, v.styles.Success.Render(v.notice), "")
	}
	if len(v.sources) == 0 {
		return append(lines, v.styles.Muted.Render("The index is empty."))
	}

	first, last := v.window()
	for i := first; i < last; i++ {
		lines = append(lines, v.row(i))
	}
	return lines
}

// window returns the slice of rows that fits the screen and contains the
// cursor.
func (v *View) window() (first, last int) {
	rows := max(v.height-chrome, 1)
	first = max(v.cursor-rows+1, 0)
	return first, min(first+rows, len(v.sources))
}

func (v *View) row(i int) string {
	s := v.sources[i]
	width := max(v.width-40, 10)
	name := s.SourceID
	if name == "" {
		name = "(no source_id)"
	}
	if len(name) > width {
		name = name[:width-3] + "..."
	}
	count := fmt.Sprintf("%4d chunks", s.Chunks)

	if i == v.cursor {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s %s  %s", width, name, count, s.Latest))
	}
	return v.styles.Normal.Render(fmt.Sprintf("  %-*s ", width, name)) +
		v.styles.Subtitle.Render(count) + "  " + v.styles.Muted.Render(s.Latest)
}

func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
}

func (v *View) Sources() []domain.SourceSummary { return v.sources }

func (v *View) Stats() domain.IndexStats { return v.stats }

// SelectedIndex returns the row under the cursor.
func (v *View) SelectedIndex() int { return v.cursor }

func (v *View) Err() error { return v.err }
