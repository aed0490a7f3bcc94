package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/core/domain"
)

// Line mode commands.
const (
	chatCmdQuit  = "/quit"
	chatCmdReset = "/reset"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents",
	Long: `Starts a conversation. Earlier turns are sent along with each question
so follow-up questions can refer back to them.

On a terminal the interactive UI is started:
  Enter    - Ask
  Tab      - Browse the sources of the last answer
  n        - Back to the question
  c        - Clear the conversation
  Esc      - Menu
  ctrl+c   - Quit

Otherwise, or with --plain, questions are read line by line from stdin.
Type /reset to clear the conversation and /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "read questions line by line instead of starting the UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errNotConfigured("answer")
	}

	if !chatPlain && isTerminal(cmd.InOrStdin()) {
		return runChatUI(cmd)
	}
	return runChatLines(cmd, cmd.InOrStdin())
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runChatUI(cmd *cobra.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(answerService, indexService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.StartIn(messages.ViewChat).WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runChatLines answers one question per input line. Failed generations
// are shown but not added to the conversation.
//
//nolint:errcheck // terminal output
func runChatLines(cmd *cobra.Command, in io.Reader) error {
	out := cmd.OutOrStdout()
	prompt := color.New(color.FgHiMagenta, color.Bold)
	var history []domain.ChatMessage

	scanner := bufio.NewScanner(in)
	for {
		prompt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case chatCmdQuit:
			return nil
		case chatCmdReset:
			history = nil
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		answer, err := answerService.Answer(cmd.Context(), question, history)
		if err != nil {
			color.New(color.FgRed).Fprintf(out, "Error: %v\n", err)
			continue
		}

		printAnswer(out, answer)
		fmt.Fprintln(out)

		if answer.Err == nil {
			history = append(history,
				domain.ChatMessage{Role: domain.RoleUser, Content: question},
				domain.ChatMessage{Role: domain.RoleAssistant, Content: answer.Text},
			)
		}
	}
}
