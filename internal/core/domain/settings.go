package domain

import "time"

// EmbeddingSettings selects the embedder.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string // Ollama only
	APIKey   string

	// Dimensions is the vector size; the hashing embedder needs it set.
	Dimensions int
}

func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.CanEmbed() && (!e.Provider.RequiresAPIKey() || e.APIKey != "")
}

// LLMSettings selects the model that writes answers.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured also requires a base URL for the chat server, which has no
// default address.
func (l LLMSettings) IsConfigured() bool {
	switch {
	case !l.Provider.CanGenerate():
		return false
	case l.Provider.RequiresAPIKey() && l.APIKey == "":
		return false
	case l.Provider == AIProviderChatServer && l.BaseURL == "":
		return false
	}
	return true
}

// IndexSettings locates and shapes the persisted index. Its state lives in
// Directory/Name.
type IndexSettings struct {
	Directory  string
	Name       string
	WindowSize int // sentences on each side of a chunk
}

type RetrievalSettings struct {
	TopK int // nearest neighbours fetched
	TopN int // chunks kept after reranking

	// SharedMissingSourceID makes every candidate without a source_id share
	// one dedup key instead of each being distinct.
	SharedMissingSourceID bool
}

type FolderSettings struct {
	Staging    string
	InDatabase string
}

type Settings struct {
	Index     IndexSettings
	Retrieval RetrievalSettings
	Folders   FolderSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings

	PollInterval time.Duration
	MetricsAddr  string // empty disables the metrics endpoint
}

// DefaultSettings embed with the hashing embedder, so a fresh install works
// offline, and leave generation unconfigured.
func DefaultSettings() Settings {
	return Settings{
		Index: IndexSettings{
			Directory:  "indexes",
			Name:       "default",
			WindowSize: DefaultWindowSize,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultSimilarityTopK,
			TopN: DefaultRerankTopN,
		},
		Folders: FolderSettings{
			Staging:    "tmp",
			InDatabase: "in_database",
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Dimensions: 512,
		},
		PollInterval: DefaultPollInterval,
	}
}

// PipelineConfig names processors in run order, with options per name.
type PipelineConfig struct {
	Processors []string
	Options    map[string]map[string]any
}

// OptionsFor returns the options of one processor, nil when it has none.
func (c PipelineConfig) OptionsFor(name string) map[string]any {
	return c.Options[name]
}

// DefaultIngestPipelineConfig returns the ingest-side processor chain.
func DefaultIngestPipelineConfig(windowSize int) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"window"},
		Options: map[string]map[string]any{
			"window": {"window_size": windowSize},
		},
	}
}

// DefaultQueryPipelineConfig returns the retrieval-side processor chain.
func DefaultQueryPipelineConfig(topN int, sharedMissingID bool) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"metadata_replacement", "recency"},
		Options: map[string]map[string]any{
			"metadata_replacement": {"target_key": MetaWindow},
			"recency":              {"top_n": topN, "shared_missing_id": sharedMissingID},
		},
	}
}
