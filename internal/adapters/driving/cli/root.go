// Package cli implements the recall command line.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the entry point.
var (
	settingsService driving.SettingsService
	indexService    driving.IndexService
	answerService   driving.AnswerService
	ingestService   driving.IngestService
	scheduler       driving.Scheduler
	schedulerConfig domain.SchedulerConfig
	metricsHandler  http.Handler
	stagingDir      string
)

// Services holds everything the commands operate on.
type Services struct {
	Settings        driving.SettingsService
	Index           driving.IndexService
	Answer          driving.AnswerService
	Ingest          driving.IngestService
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig

	// MetricsHandler serves the Prometheus registry. Optional.
	MetricsHandler http.Handler

	// StagingDir is the folder the poller ingests from; serve watches it.
	StagingDir string
}

// SetServices injects the services used by every command.
func SetServices(s *Services) {
	settingsService = s.Settings
	indexService = s.Index
	answerService = s.Answer
	ingestService = s.Ingest
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	metricsHandler = s.MetricsHandler
	stagingDir = s.StagingDir
}

// Bootstrap builds services for a configuration directory.
type Bootstrap struct {
	// Settings opens only the configuration. Commands that edit settings
	// must work while the configured providers are unreachable.
	Settings func(configDir string) (driving.SettingsService, error)

	// Services builds everything. The returned cleanup releases the
	// services and runs after the command finished.
	Services func(ctx context.Context, configDir string) (*Services, func(), error)
}

// Service levels a command declares in its annotations.
const (
	annotationNeeds = "needs"
	needsNothing    = "nothing"
	needsSettings   = "settings"
)

var (
	bootstrap Bootstrap
	cleanup   func()

	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Answer questions from your documents",
	Long: `Recall indexes records, mails and notes dropped into a staging folder
and answers questions about them with a language model, citing the
newest matching chunk of each source.

Run 'recall serve' to poll the staging folder and expose the HTTP and MCP
interfaces, or 'recall chat' for an interactive conversation.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.recall)")
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	switch needs(cmd) {
	case needsNothing:
		return nil
	case needsSettings:
		if settingsService != nil || bootstrap.Settings == nil {
			return nil
		}
		svc, err := bootstrap.Settings(configDir)
		if err != nil {
			return err
		}
		settingsService = svc
		return nil
	default:
		if answerService != nil || bootstrap.Services == nil {
			return nil
		}
		services, release, err := bootstrap.Services(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		SetServices(services)
		cleanup = release
		return nil
	}
}

// needs returns the service level of cmd, inherited from its parents.
func needs(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd:
			return needsNothing
		}
		if level := c.Annotations[annotationNeeds]; level != "" {
			return level
		}
	}
	return ""
}

// Execute runs the root command. Services are built on demand before
// the first command that needs them.
func Execute(ctx context.Context, boot Bootstrap) error {
	bootstrap = boot
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// errNotConfigured reports a service the entry point did not provide.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
