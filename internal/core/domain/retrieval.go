package domain

// ScoredChunk is a chunk paired with its similarity (or rerank) score.
type ScoredChunk struct {
	// Chunk is the retrieved node.
	Chunk Chunk

	// Score is the relevance score, higher is better.
	Score float64
}

// QueryResponse is a synthesised response carrying the nodes it was built from.
type QueryResponse struct {
	// Response is the synthesised text, empty for retrieval-only queries.
	Response string

	// SourceNodes are the nodes the response was built from.
	SourceNodes []ScoredChunk
}

// CandidatesKind tags the shape a set of rerank candidates arrived in.
type CandidatesKind int

const (
	// CandidatesCollection is a plain ordered list of scored chunks.
	CandidatesCollection CandidatesKind = iota

	// CandidatesWrapped is a response object exposing its source nodes.
	CandidatesWrapped
)

// String returns the kind name.
func (k CandidatesKind) String() string {
	switch k {
	case CandidatesCollection:
		return "collection"
	case CandidatesWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Candidates is the input of a postprocessor chain. Retrieval may hand over
// either a bare collection or a wrapped response; the pipeline resolves the
// variant once through Nodes.
type Candidates struct {
	kind     CandidatesKind
	nodes    []ScoredChunk
	response *QueryResponse
}

// CollectionOf wraps a plain list of scored chunks.
func CollectionOf(nodes []ScoredChunk) Candidates {
	return Candidates{kind: CandidatesCollection, nodes: nodes}
}

// WrappedOf wraps a response object.
func WrappedOf(resp *QueryResponse) Candidates {
	return Candidates{kind: CandidatesWrapped, response: resp}
}

// Kind reports which variant this is.
func (c Candidates) Kind() CandidatesKind {
	return c.kind
}

// Nodes returns the underlying scored chunks regardless of variant.
func (c Candidates) Nodes() []ScoredChunk {
	if c.kind == CandidatesWrapped {
		if c.response == nil {
			return nil
		}
		return c.response.SourceNodes
	}
	return c.nodes
}

// WithNodes returns candidates of the same variant holding nodes instead.
// A wrapped response is copied, never modified.
func (c Candidates) WithNodes(nodes []ScoredChunk) Candidates {
	if c.kind == CandidatesWrapped {
		resp := QueryResponse{SourceNodes: nodes}
		if c.response != nil {
			resp.Response = c.response.Response
		}
		return WrappedOf(&resp)
	}
	return CollectionOf(nodes)
}

// Response returns the wrapped response, or nil for a plain collection.
func (c Candidates) Response() *QueryResponse {
	return c.response
}

// Len returns the number of candidates.
func (c Candidates) Len() int {
	return len(c.Nodes())
}

// IndexConfig is the configuration record persisted alongside an index.
type IndexConfig struct {
	// WindowSize is the number of neighbouring sentences on each side.
	WindowSize int

	// EmbeddingModel names the model that produced stored vectors.
	EmbeddingModel string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// IndexStats summarises the contents of an index.
type IndexStats struct {
	Name       string
	Path       string
	WindowSize int
	Documents  int
	Chunks     int
}

// DefaultWindowSize is the sentence window used when none is configured.
const DefaultWindowSize = 3

// Retrieval defaults.
const (
	DefaultSimilarityTopK = 6
	DefaultRerankTopN     = 4
)
