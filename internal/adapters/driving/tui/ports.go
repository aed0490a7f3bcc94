// Package tui is the interactive terminal chat: a menu, the conversation,
// an index browser and a help screen, built on bubbletea.
package tui

import (
	"errors"

	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

var (
	ErrInvalidPorts         = errors.New("tui: invalid ports configuration")
	ErrMissingAnswerService = errors.New("tui: answer service is required")
)

// Ports are the services the TUI drives. Index may be nil, in which case
// the index view reports itself unavailable.
type Ports struct {
	Answer driving.AnswerService
	Index  driving.IndexService
}

func NewPorts(answer driving.AnswerService, index driving.IndexService) *Ports {
	return &Ports{Answer: answer, Index: index}
}

func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrInvalidPorts
	case p.Answer == nil:
		return ErrMissingAnswerService
	}
	return nil
}
