package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// sourceStyle highlights source ids.
var sourceStyle = color.New(color.FgCyan)

var (
	askJSON        bool
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the index",
	Long: `Retrieves the chunks most related to the question, keeps the newest
chunk of each source and asks the configured language model to answer
from them.

Without a configured LLM the answer reports the missing provider; run
'recall settings llm' to configure one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "context", false, "print the document context handed to the model")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errNotConfigured("answer")
	}

	query := strings.Join(args, " ")
	answer, err := answerService.Answer(cmd.Context(), query, nil)
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}

	printAnswer(cmd.OutOrStdout(), answer)
	if askShowContext && answer.Context != "" {
		fmt.Fprintln(cmd.OutOrStdout())
		color.New(color.Faint).Fprintln(cmd.OutOrStdout(), answer.Context) //nolint:errcheck // terminal output
	}
	return nil
}

// answerJSON is the --json shape of an answer.
type answerJSON struct {
	Answer       string       `json:"answer"`
	Error        string       `json:"error,omitempty"`
	Sources      []sourceJSON `json:"sources"`
	Context      string       `json:"context,omitempty"`
	RetrievalMS  int64        `json:"retrieval_ms"`
	GenerationMS int64        `json:"generation_ms"`
}

type sourceJSON struct {
	ChunkID   string  `json:"chunk_id"`
	SourceID  string  `json:"source_id,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{
		Answer:       answer.Text,
		Sources:      make([]sourceJSON, 0, len(answer.Chunks)),
		RetrievalMS:  answer.Timings.Retrieval.Milliseconds(),
		GenerationMS: answer.Timings.Generation.Milliseconds(),
	}
	if answer.Err != nil {
		out.Error = answer.Err.Error()
	}
	if askShowContext {
		out.Context = answer.Context
	}
	for i := range answer.Chunks {
		c := &answer.Chunks[i].Chunk
		sourceID, _ := c.SourceID()
		out.Sources = append(out.Sources, sourceJSON{
			ChunkID:   c.ID,
			SourceID:  sourceID,
			Timestamp: domain.MetadataString(c.Metadata, domain.MetaTimestamp),
			Score:     answer.Chunks[i].Score,
			Text:      c.Content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// printAnswer renders an answer followed by the sources it was grounded on.
//
//nolint:errcheck // terminal output
func printAnswer(w io.Writer, answer *domain.Answer) {
	if answer.Err != nil {
		color.New(color.FgRed).Fprintln(w, answer.Text)
	} else {
		fmt.Fprintln(w, answer.Text)
	}

	if len(answer.Chunks) == 0 {
		return
	}

	fmt.Fprintln(w)
	color.New(color.Bold).Fprintf(w, "Sources (%d)\n", len(answer.Chunks))
	for i := range answer.Chunks {
		c := &answer.Chunks[i].Chunk
		sourceID, ok := c.SourceID()
		if !ok {
			sourceID = "(no source_id)"
		}
		fmt.Fprintf(w, "  [%d] %s", i+1, sourceStyle.Sprint(sourceID))
		if ts := domain.MetadataString(c.Metadata, domain.MetaTimestamp); ts != "" {
			fmt.Fprintf(w, " @ %s", ts)
		}
		fmt.Fprintf(w, " (%.3f)\n", answer.Chunks[i].Score)
	}

	t := answer.Timings
	color.New(color.Faint).Fprintf(w, "retrieval %s, generation %s\n",
		t.Retrieval.Round(time.Millisecond), t.Generation.Round(time.Millisecond))
}
