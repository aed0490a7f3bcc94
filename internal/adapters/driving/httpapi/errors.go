// Package httpapi serves recall over HTTP. It keeps the /query contract of
// the chat frontend and adds JSON endpoints for asking, retrieval and index
// management.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("httpapi: answer service is required")

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIndexClosed),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
