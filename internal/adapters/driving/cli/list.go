package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed sources",
	Long:  `Lists every source_id in the index with its chunk count and newest timestamp.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output sources as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	stats, err := indexService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	listing, err := indexService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	sources := domain.SummariseSources(listing)

	if listJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%s: %d documents, %d chunks, window %d\n",
		color.New(color.Bold).Sprint(stats.Name), stats.Documents, stats.Chunks, stats.WindowSize)
	cmd.Printf("%s\n\n", stats.Path)

	if len(sources) == 0 {
		cmd.Println("The index is empty.")
		return nil
	}

	for _, s := range sources {
		id := s.SourceID
		if id == "" {
			id = "(no source_id)"
		}
		cmd.Printf("  %s  %d chunks", sourceStyle.Sprint(id), s.Chunks)
		if s.Latest != "" {
			cmd.Printf("  latest %s", s.Latest)
		}
		cmd.Println()
	}
	return nil
}
