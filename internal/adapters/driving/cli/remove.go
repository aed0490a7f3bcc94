package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <source_id>",
	Short: "Remove every chunk of a source",
	Long: `Removes every chunk whose source_id matches from the index. The files in
the in-database folder are left alone, so a rebuild brings the source back.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	sourceID := args[0]
	n, err := indexService.RemoveBySourceID(cmd.Context(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", sourceID, err)
	}

	if n == 0 {
		cmd.Printf("No chunks found for %s.\n", sourceID)
		return nil
	}
	cmd.Printf("Removed %d chunks of %s.\n", n, sourceID)
	return nil
}
