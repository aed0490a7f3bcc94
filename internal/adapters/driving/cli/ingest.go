package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Index records",
	Long: `Indexes the given files in place. Without arguments every supported
file in the staging folder is indexed and moved to the in-database folder,
which is what the background poller of 'recall serve' does.

Supported formats: JSON records ({question, answer} or {information},
each with source_id and timestamp), .eml mails, plain text and markdown.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	var (
		report domain.IngestReport
		err    error
	)
	if len(args) == 0 {
		report, err = ingestService.IngestStaging(cmd.Context())
	} else {
		report, err = ingestService.IngestFiles(cmd.Context(), args)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printIngestReport(cmd.OutOrStdout(), report)
	return nil
}

//nolint:errcheck // terminal output
func printIngestReport(w io.Writer, report domain.IngestReport) {
	if report.Empty() {
		fmt.Fprintln(w, "Nothing to ingest.")
		return
	}

	fmt.Fprintf(w, "Indexed %s from %d documents (%d files).\n",
		color.GreenString("%d chunks", report.Chunks), report.Documents, report.Files)
	if len(report.Moved) > 0 {
		fmt.Fprintf(w, "Moved %d files to the in-database folder.\n", len(report.Moved))
	}
	if len(report.Rejected) > 0 {
		color.New(color.FgYellow).Fprintf(w, "Rejected %d files:\n", len(report.Rejected))
		for _, path := range report.Rejected {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
}
