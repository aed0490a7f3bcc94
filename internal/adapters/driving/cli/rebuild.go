package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [folder]",
	Short: "Rebuild the index from a folder of records",
	Long: `Discards the index and indexes every record in the folder again.
Without a folder the in-database folder is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	var folder string
	if len(args) == 1 {
		folder = args[0]
	}

	n, err := indexService.Rebuild(cmd.Context(), folder)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	cmd.Printf("Rebuilt index with %d chunks.\n", n)
	return nil
}
