// Package driven holds the interfaces core services call out through.
// Adapters under internal/adapters/driven implement them.
//
// An index is assembled from VectorIndex, IndexStore and EmbeddingService,
// fed by FolderReader, the NormaliserRegistry and the post-processor
// pipelines. LLMService is optional; without it only retrieval works.
// ConfigStore, PromptStore and ProviderChecker back the settings, and
// SchedulerStore keeps the poller's state apart from any index.
//
// The package imports domain and nothing else from internal/.
package driven
