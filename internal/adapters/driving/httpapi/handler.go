package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/recall/internal/core/domain"
)

type handler struct {
	ports *Ports
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// query answers the last user message of a conversation. Earlier messages
// become the history; a sender other than "user" is the assistant.
func (h *handler) query(c *gin.Context) {
	var msgs []QueryMessage
	if err := c.ShouldBindJSON(&msgs); err != nil || len(msgs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}

	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == SenderUser {
			last = i
			break
		}
	}
	if last < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No user message found"})
		return
	}

	history := make([]domain.ChatMessage, 0, last)
	for _, m := range msgs[:last] {
		role := domain.RoleAssistant
		if m.Sender == SenderUser {
			role = domain.RoleUser
		}
		history = append(history, domain.ChatMessage{Role: role, Content: m.Text})
	}

	answer, err := h.ports.Answer.Answer(c.Request.Context(), msgs[last].Text, history)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Answer: answer.Text, Context: answer.Context})
}

func (h *handler) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	answer, err := h.ports.Answer.Answer(c.Request.Context(), req.Query, req.History)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := AskResponse{
		Answer:       answer.Text,
		Context:      answer.Context,
		Sources:      toChunkResponses(answer.Chunks),
		RetrievalMS:  answer.Timings.Retrieval.Milliseconds(),
		GenerationMS: answer.Timings.Generation.Milliseconds(),
		TotalMS:      answer.Timings.Total.Milliseconds(),
	}
	if answer.Err != nil {
		resp.Error = answer.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	chunks, err := h.ports.Answer.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChunkResponses(chunks))
}

func (h *handler) stats(c *gin.Context) {
	stats, err := h.ports.Index.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Name:       stats.Name,
		Path:       stats.Path,
		WindowSize: stats.WindowSize,
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
	})
}

func (h *handler) sources(c *gin.Context) {
	listing, err := h.ports.Index.ListDocuments(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SummariseSources(listing))
}

func (h *handler) removeSource(c *gin.Context) {
	n, err := h.ports.Index.RemoveBySourceID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Chunks: n})
}

// rebuild accepts an empty body, which rebuilds from the default folder.
func (h *handler) rebuild(c *gin.Context) {
	var req RebuildRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	n, err := h.ports.Index.Rebuild(c.Request.Context(), req.Folder)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Chunks: n})
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

// polls takes an optional positive limit query parameter.
func (h *handler) polls(c *gin.Context) {
	limit := DefaultPollsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	polls, err := h.ports.Polls.History(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPollResponses(polls))
}
