package driven

import "context"

// EmbeddingService turns text into vectors of a fixed size. Vectors of one
// service are comparable with each other, never with another model's.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping fails when the provider cannot serve the configured model.
	Ping(ctx context.Context) error
	Close() error
}
