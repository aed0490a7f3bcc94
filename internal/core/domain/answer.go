package domain

import "time"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a message in a conversation.
type ChatMessage struct {
	// Role is the message role (system, user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// NoRelevantInformation is the answer returned when retrieval finds nothing.
// The generator is not consulted in that case.
const NoRelevantInformation = "No relevant documents found to answer the question."

// Timings records how long each stage of an answer took.
type Timings struct {
	Retrieval  time.Duration
	Generation time.Duration
	Total      time.Duration
}

// Answer is the outcome of a retrieval-augmented generation run.
type Answer struct {
	// Text is the generated response, the fixed no-information text,
	// or an error description when generation failed.
	Text string

	// Chunks are the reranked chunks the answer was grounded on.
	Chunks []ScoredChunk

	// Context is the numbered document block handed to the generator.
	Context string

	// Messages is the exact prompt handed to the generator.
	Messages []ChatMessage

	// Timings holds per-stage durations.
	Timings Timings

	// Err is the generation error when the answer text is an error description.
	Err error
}

// Generated reports whether the generator produced the answer text.
func (a *Answer) Generated() bool {
	return a.Err == nil && len(a.Chunks) > 0
}
