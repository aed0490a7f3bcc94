package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

const defaultPollsLimit = 20

var (
	pollsJSON  bool
	pollsLimit int
)

var pollsCmd = &cobra.Command{
	Use:   "polls",
	Short: "Show recent staging folder polls",
	Long: `Shows the most recent polls of the staging folder that ingested files or failed.
Polls that found an empty folder are not recorded.`,
	Args: cobra.NoArgs,
	RunE: runPolls,
}

func init() {
	pollsCmd.Flags().BoolVar(&pollsJSON, "json", false, "output polls as JSON")
	pollsCmd.Flags().IntVarP(&pollsLimit, "limit", "n", defaultPollsLimit, "number of polls to show")
	rootCmd.AddCommand(pollsCmd)
}

// pollJSON is the JSON shape of a poll.
type pollJSON struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	Rejected   int       `json:"rejected"`
	Error      string    `json:"error,omitempty"`
}

func runPolls(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errNotConfigured("scheduler")
	}
	if pollsLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", pollsLimit)
	}

	polls, err := scheduler.History(cmd.Context(), pollsLimit)
	if err != nil {
		return fmt.Errorf("failed to read poll history: %w", err)
	}

	if pollsJSON {
		out := make([]pollJSON, 0, len(polls))
		for _, p := range polls {
			out = append(out, pollJSON{
				StartedAt:  p.StartedAt,
				DurationMS: p.Duration().Milliseconds(),
				Documents:  p.Documents,
				Chunks:     p.Chunks,
				Rejected:   p.Rejected,
				Error:      p.Error,
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal polls: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(polls) == 0 {
		cmd.Println("No polls recorded yet.")
		return nil
	}
	for _, p := range polls {
		cmd.Println(formatPoll(p))
	}
	return nil
}

func formatPoll(p domain.PollResult) string {
	line := fmt.Sprintf("%s  %4dms  %d documents, %d chunks",
		p.StartedAt.Local().Format(time.DateTime), p.Duration().Milliseconds(), p.Documents, p.Chunks)
	if p.Rejected > 0 {
		line += fmt.Sprintf(", %d rejected", p.Rejected)
	}
	if !p.Success() {
		line += "  " + color.RedString("error: %s", p.Error)
	}
	return line
}
