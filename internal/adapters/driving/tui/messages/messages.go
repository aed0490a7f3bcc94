// Package messages holds the tea.Msg types passed between the TUI views
// and the commands they run.
package messages

import "github.com/custodia-labs/recall/internal/core/domain"

type ViewType int

const (
	ViewMenu ViewType = iota
	ViewChat
	ViewIndex
	ViewHelp
)

var viewNames = [...]string{ViewMenu: "menu", ViewChat: "chat", ViewIndex: "index", ViewHelp: "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to switch views.
type ViewChanged struct {
	View ViewType
}

// AnswerCompleted is the result of one question.
type AnswerCompleted struct {
	Query  string
	Answer *domain.Answer
	Err    error
}

// IndexLoaded carries the index statistics and the per-source summary.
type IndexLoaded struct {
	Stats   domain.IndexStats
	Sources []domain.SourceSummary
	Err     error
}

// SourceRemoved reports how many chunks a removal dropped.
type SourceRemoved struct {
	SourceID string
	Removed  int
	Err      error
}

type ErrorOccurred struct {
	Err error
}

type Quit struct{}
