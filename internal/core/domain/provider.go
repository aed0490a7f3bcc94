package domain

// AIProvider names a backend for embeddings, generation or both.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderChatServer is a self-hosted endpoint speaking the
	// {"prompt": messages} -> {"response": text} protocol.
	AIProviderChatServer AIProvider = "chatserver"

	// AIProviderHashing is the built-in feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

type providerTraits struct {
	name       AIProvider
	label      string
	apiKey     bool // vendor API key required
	local      bool
	embedModel string // empty when the provider cannot embed
	llmModel   string // empty when the provider cannot generate
}

// catalogue is in menu order.
var catalogue = []providerTraits{
	{name: AIProviderHashing, label: "Feature hashing (built-in)", local: true, embedModel: "fnv-hashing"},
	{name: AIProviderOllama, label: "Ollama (local)", local: true, embedModel: "nomic-embed-text", llmModel: "llama3.2"},
	{name: AIProviderOpenAI, label: "OpenAI (cloud)", apiKey: true, embedModel: "text-embedding-3-small", llmModel: "gpt-4o-mini"},
	{name: AIProviderAnthropic, label: "Anthropic (cloud)", apiKey: true, llmModel: "claude-3-5-sonnet-latest"},
	{name: AIProviderChatServer, label: "Chat server (self-hosted)", local: true, llmModel: "chat"},
}

// modelDimensions holds the output size of embedding models we know.
var modelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func (p AIProvider) traits() (providerTraits, bool) {
	for _, t := range catalogue {
		if t.name == p {
			return t, true
		}
	}
	return providerTraits{}, false
}

func (p AIProvider) IsValid() bool {
	_, ok := p.traits()
	return ok
}

func (p AIProvider) RequiresAPIKey() bool {
	t, _ := p.traits()
	return t.apiKey
}

// IsLocal reports whether the provider runs without a vendor account.
func (p AIProvider) IsLocal() bool {
	t, _ := p.traits()
	return t.local
}

// CanEmbed reports whether the provider produces embeddings.
func (p AIProvider) CanEmbed() bool {
	t, _ := p.traits()
	return t.embedModel != ""
}

// CanGenerate reports whether the provider writes answers.
func (p AIProvider) CanGenerate() bool {
	t, _ := p.traits()
	return t.llmModel != ""
}

func (p AIProvider) String() string { return string(p) }

// Description is the label shown in menus, "Unknown" for unrecognised names.
func (p AIProvider) Description() string {
	if t, ok := p.traits(); ok {
		return t.label
	}
	return "Unknown"
}

// AllEmbeddingProviders lists the providers that can embed, in menu order.
func AllEmbeddingProviders() []AIProvider {
	return collect(func(t providerTraits) string { return t.embedModel })
}

func AllLLMProviders() []AIProvider {
	return collect(func(t providerTraits) string { return t.llmModel })
}

func DefaultEmbeddingModels() map[AIProvider]string {
	return defaults(func(t providerTraits) string { return t.embedModel })
}

func DefaultLLMModels() map[AIProvider]string {
	return defaults(func(t providerTraits) string { return t.llmModel })
}

// KnownDimensions returns the vector size of a known embedding model, or 0.
func KnownDimensions(model string) int {
	return modelDimensions[model]
}

func collect(model func(providerTraits) string) []AIProvider {
	var out []AIProvider
	for _, t := range catalogue {
		if model(t) != "" {
			out = append(out, t.name)
		}
	}
	return out
}

func defaults(model func(providerTraits) string) map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, t := range catalogue {
		if m := model(t); m != "" {
			out[t.name] = m
		}
	}
	return out
}
