// Package app wires the adapters and services behind the command line.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/recall/internal/adapters/driven/ai"
	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/recall/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall/internal/connectors/filesystem"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/core/services"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/metrics"
	"github.com/custodia-labs/recall/internal/normalisers"
	"github.com/custodia-labs/recall/internal/normalisers/eml"
	"github.com/custodia-labs/recall/internal/normalisers/markdown"
	"github.com/custodia-labs/recall/internal/normalisers/pdf"
	"github.com/custodia-labs/recall/internal/normalisers/plaintext"
	"github.com/custodia-labs/recall/internal/normalisers/record"
	"github.com/custodia-labs/recall/internal/postprocessors"
)

// Layout of the configuration directory.
const (
	dataDir   = "data"
	promptDir = "prompts"
)

// ConfigDir returns dir, or ~/.recall when dir is empty.
func ConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return file.DefaultDir()
}

// resolve makes a relative folder setting relative to the config directory.
func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// OpenSettings opens the settings without touching any provider.
func OpenSettings(configDir string) (driving.SettingsService, error) {
	svc, _, err := openSettings(configDir)
	return svc, err
}

func openSettings(configDir string) (*services.SettingsService, string, error) {
	dir, err := ConfigDir(configDir)
	if err != nil {
		return nil, "", err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, "", fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store, ai.Checker{}), dir, nil
}

// Build opens the index named in the settings and wires every service
// the commands use. The returned cleanup stops the index and releases
// the providers and the state database.
func Build(ctx context.Context, configDir string) (*cli.Services, func(), error) {
	settingsService, dir, err := openSettings(configDir)
	if err != nil {
		return nil, nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}

	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*cli.Services, func(), error) {
		release()
		return nil, nil, err
	}

	providers, err := ai.Initialise(ctx, &settings.Embedding, &settings.LLM)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, providers.Close)
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}

	state, err := sqlite.NewStore(filepath.Join(dir, dataDir))
	if err != nil {
		return fail(fmt.Errorf("opening state: %w", err))
	}
	closers = append(closers, func() {
		if err := state.Close(); err != nil {
			logger.Warn("closing state: %v", err)
		}
	})

	recorder := metrics.New()
	stagingDir := resolve(dir, settings.Folders.Staging)
	archiveDir := resolve(dir, settings.Folders.InDatabase)
	loader, err := newLoader()
	if err != nil {
		return fail(err)
	}

	registry := services.NewIndexRegistry(
		indexDependencies(providers.Embedder, loader, recorder, settings.Retrieval),
		resolve(dir, settings.Index.Directory),
		settings.Index.WindowSize,
		services.WithRebuildSource(archiveDir),
		services.WithSimilarityTopK(settings.Retrieval.TopK),
	)
	closers = append(closers, func() {
		if err := registry.Close(); err != nil {
			logger.Warn("closing indexes: %v", err)
		}
	})

	index, err := registry.Get(ctx, settings.Index.Name)
	if err != nil {
		return fail(fmt.Errorf("opening index %s: %w", settings.Index.Name, err))
	}

	prompts := file.NewPromptStore(filepath.Join(dir, promptDir))
	if err := prompts.WriteDefaults(); err != nil {
		logger.Warn("writing default prompts: %v", err)
	}
	rag := services.NewRAGService(index, providers.Generator,
		services.WithMetrics(recorder), services.WithPrompts(prompts))

	ingest := services.NewIngestService(index, loader, stagingDir, archiveDir)
	schedulerConfig := settingsService.SchedulerConfig()

	return &cli.Services{
		Settings:        settingsService,
		Index:           index,
		Answer:          rag,
		Ingest:          ingest,
		Scheduler:       services.NewScheduler(schedulerConfig, state.SchedulerStore(), ingest),
		SchedulerConfig: schedulerConfig,
		MetricsHandler:  recorder.Handler(),
		StagingDir:      stagingDir,
	}, release, nil
}

// newLoader reads JSON records, mails, markdown and plain text, and PDFs
// when pdftotext is installed. Without it PDFs stay in the staging folder.
func newLoader() (*services.FolderLoader, error) {
	records, err := record.New()
	if err != nil {
		return nil, fmt.Errorf("creating record normaliser: %w", err)
	}
	registry := normalisers.NewRegistry(records, eml.New(), markdown.New(), plaintext.New())
	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("PDF ingestion disabled: %v", err)
	} else {
		registry.Register(pdf.New())
	}
	return services.NewFolderLoader(filesystem.NewReader(), registry), nil
}

func indexDependencies(
	embedder driven.EmbeddingService,
	loader services.DocumentLoader,
	recorder *metrics.Recorder,
	retrieval domain.RetrievalSettings,
) services.IndexDependencies {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	return services.IndexDependencies{
		Stores:   sqlite.IndexStoreFactory{},
		Embedder: embedder,
		NewVectorIndex: func() driven.VectorIndex {
			return flat.New(embedder.Dimensions())
		},
		NewChunker: func(windowSize int) (driven.PostProcessorPipeline, error) {
			return registry.Ingest(domain.DefaultIngestPipelineConfig(windowSize))
		},
		NewNodeChain: func() (driven.NodePostProcessorPipeline, error) {
			return registry.Query(
				domain.DefaultQueryPipelineConfig(retrieval.TopN, retrieval.SharedMissingSourceID))
		},
		Loader:  loader,
		Metrics: recorder,
	}
}

// Bootstrap returns the hooks the command line builds its services with.
func Bootstrap() cli.Bootstrap {
	return cli.Bootstrap{
		Settings: OpenSettings,
		Services: Build,
	}
}
