// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
)

// ChunkList displays the chunks an answer was grounded on.
type ChunkList struct {
	chunks   []domain.ScoredChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates a new chunk list component.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ChunkList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the chunk list.
func (c *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the chunk list.
func (c *ChunkList) View() string {
	if len(c.chunks) == 0 {
		return c.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(c.chunks)+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(c.chunks))), "")

	// Each chunk takes two lines.
	visibleCount := (c.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if c.selected >= visibleCount {
		start = c.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(c.chunks) {
		end = len(c.chunks)
	}

	for i := start; i < end; i++ {
		lines = append(lines, c.renderChunk(i, &c.chunks[i]))
	}

	return strings.Join(lines, "\n")
}

// renderChunk formats one chunk as a header line and a preview line.
func (c *ChunkList) renderChunk(index int, sc *domain.ScoredChunk) string {
	indicator := "  "
	if index == c.selected {
		indicator = "> "
	}

	label := Label(&sc.Chunk)
	maxLabelLen := c.width - 12
	if maxLabelLen < 10 {
		maxLabelLen = 10
	}
	label = truncate(label, maxLabelLen)

	score := fmt.Sprintf("%.3f", sc.Score)

	var header string
	if index == c.selected {
		header = c.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxLabelLen, label, score))
	} else {
		header = c.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxLabelLen, label)) +
			c.styles.Muted.Render(score)
	}

	preview := truncate(strings.Join(strings.Fields(sc.Chunk.Content), " "), max(c.width-6, 20))
	return header + "\n" + c.styles.Muted.Render("    "+preview)
}

// Label names a chunk by its source and timestamp.
func Label(chunk *domain.Chunk) string {
	sourceID, ok := chunk.SourceID()
	if !ok || sourceID == "" {
		sourceID = chunk.DocumentID
	}
	ts, ok := chunk.Metadata[domain.MetaTimestamp]
	if !ok || ts == nil {
		return sourceID
	}
	if f, ok := ts.(float64); ok {
		return fmt.Sprintf("%s @ %.0f", sourceID, f)
	}
	return fmt.Sprintf("%s @ %v", sourceID, ts)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// SetChunks replaces the listed chunks.
func (c *ChunkList) SetChunks(chunks []domain.ScoredChunk) {
	c.chunks = chunks
	c.selected = 0
}

// Chunks returns the listed chunks.
func (c *ChunkList) Chunks() []domain.ScoredChunk {
	return c.chunks
}

// Selected returns the index of the selected chunk.
func (c *ChunkList) Selected() int {
	return c.selected
}

// SelectedChunk returns the selected chunk, or nil if none.
func (c *ChunkList) SelectedChunk() *domain.ScoredChunk {
	if c.selected < 0 || c.selected >= len(c.chunks) {
		return nil
	}
	return &c.chunks[c.selected]
}

// MoveUp moves selection up.
func (c *ChunkList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ChunkList) MoveDown() {
	if c.selected < len(c.chunks)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ChunkList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of chunks.
func (c *ChunkList) Count() int {
	return len(c.chunks)
}
