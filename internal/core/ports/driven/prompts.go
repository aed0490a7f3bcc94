package driven

// PromptStore supplies the prompt templates used for answers.
type PromptStore interface {
	// Load returns the template called name. Unknown names are an error.
	Load(name string) (string, error)
}

// Prompt names.
const (
	// PromptAnswerSystem is the system message of every answer. It has no
	// placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerContext is the final user turn. It takes two %s
	// placeholders: the numbered documents, then the query.
	PromptAnswerContext = "answer_context"
)
