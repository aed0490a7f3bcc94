package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("Recall"), ""}

	if transcript := v.renderTranscript(); transcript != "" {
		sections = append(sections, transcript, "")
	}

	sections = append(sections, v.input.View(), "")

	if v.list.Count() > 0 {
		sections = append(sections, v.list.View(), "")
	}

	sections = append(sections, v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTranscript renders the most recent turns that fit the view.
func (v *View) renderTranscript() string {
	if len(v.turns) == 0 && v.pending == "" {
		return ""
	}

	reply := v.styles.Reply.Width(max(v.width-2, 20))
	you := func(q string) string { return v.styles.UserLabel.Render("You: ") + v.styles.Normal.Render(q) }

	var lines []string
	for _, t := range v.turns {
		lines = append(lines, you(t.Question), v.styles.AssistantLabel.Render("Recall:"))
		switch {
		case t.Err != nil && t.Answer == "":
			lines = append(lines, v.styles.Error.Render("  "+t.Err.Error()))
		case t.Err != nil:
			lines = append(lines, v.styles.Error.Render(reply.Render(t.Answer)))
		default:
			lines = append(lines, reply.Render(t.Answer))
		}
		lines = append(lines, "")
	}
	if v.pending != "" {
		lines = append(lines, you(v.pending), v.styles.Muted.Render("  thinking..."))
	}

	all := strings.Split(strings.TrimRight(strings.Join(lines, "\n"), "\n"), "\n")
	budget := v.transcriptHeight()
	if len(all) > budget {
		all = all[len(all)-budget:]
	}
	return strings.Join(all, "\n")
}

// transcriptHeight is what is left of the screen after the title, input,
// status bar, spacing and the source list.
func (v *View) transcriptHeight() int {
	reserved := 10
	if v.list.Count() > 0 {
		reserved += v.listHeight() + 1
	}
	return max(v.height-reserved, 3)
}

func (v *View) listHeight() int {
	return max(v.height/3, 4)
}
