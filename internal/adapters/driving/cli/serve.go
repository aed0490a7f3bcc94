package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/recall/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/recall/internal/connectors/filesystem"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/logger"
)

// DefaultServeAddr is where the HTTP API listens by default.
const DefaultServeAddr = ":5000"

var (
	serveAddr        string
	serveMetricsAddr string
	serveOrigins     []string
	serveNoMCP       bool
	serveNoWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion poller and the HTTP API",
	Long: `Runs until interrupted:
  - the poller, which indexes new files in the staging folder every few
    seconds and moves them to the in-database folder
  - a watcher that wakes the poller as soon as a file lands in staging
  - the HTTP API: POST /query (chat frontend), /v1/ask, /v1/retrieve,
    /v1/index, /v1/sources, /metrics and the MCP endpoint at /mcp

Use --metrics-addr (or metrics.addr in the config) to expose the metrics
on a separate listener as well.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", DefaultServeAddr, "HTTP listen address")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "separate metrics listen address (default metrics.addr)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "origins allowed to call the API (default any)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not serve MCP at /mcp")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "rely on the poll interval only")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errNotConfigured("answer")
	}

	router, err := newRouter()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if scheduler != nil && schedulerConfig.Enabled {
		g.Go(func() error {
			return ignoreCanceled(scheduler.Start(ctx))
		})
		g.Go(func() error {
			<-ctx.Done()
			return scheduler.Stop()
		})
		if !serveNoWatch && stagingDir != "" {
			g.Go(func() error {
				return watchStaging(ctx, stagingDir)
			})
		}
	}

	g.Go(func() error {
		return httpapi.Serve(ctx, serveAddr, router.Engine())
	})
	if addr := metricsAddr(); addr != "" && metricsHandler != nil {
		g.Go(func() error {
			return httpapi.Serve(ctx, addr, metricsHandler)
		})
		cmd.Printf("Metrics on http://%s/metrics\n", addr)
	}

	cmd.Printf("Listening on http://%s\n", serveAddr)
	return ignoreCanceled(g.Wait())
}

func newRouter() (*httpapi.Router, error) {
	var opts []httpapi.Option
	if len(serveOrigins) > 0 {
		opts = append(opts, httpapi.WithAllowedOrigins(serveOrigins...))
	}
	if metricsHandler != nil {
		opts = append(opts, httpapi.WithMetrics(metricsHandler))
	}
	if !serveNoMCP {
		server, err := newMCPServer()
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		opts = append(opts, httpapi.WithMCP(server.Handler()))
	}

	ports := &httpapi.Ports{Answer: answerService, Index: indexService}
	if scheduler != nil {
		ports.Polls = scheduler
	}
	return httpapi.New(ports, opts...)
}

func metricsAddr() string {
	if serveMetricsAddr != "" {
		return serveMetricsAddr
	}
	if settingsService == nil {
		return ""
	}
	settings, err := settingsService.Get()
	if err != nil {
		return ""
	}
	return settings.MetricsAddr
}

// watchStaging wakes the poller whenever a file appears in dir. Without a
// watcher the poller still runs on its interval.
func watchStaging(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Not watching %s: %v", dir, err)
		return nil
	}

	w := filesystem.NewWatcher(dir)
	events, err := w.Watch(ctx)
	if err != nil {
		logger.Warn("Not watching %s: %v", dir, err)
		return nil
	}
	defer w.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind == filesystem.FileRemoved {
				continue
			}
			if scheduler.Trigger(domain.TaskIDStagingIngest) {
				logger.Debug("%s %s, polling staging now", ev.Path, ev.Kind)
			}
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
