package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var errNoSettings = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Print the effective settings, or change the model providers interactively.

Settings live in config.toml in the configuration directory. Every key can be
overridden by an environment variable, e.g. RECALL_LLM_API_KEY for llm.api_key.`,
	Annotations: map[string]string{annotationNeeds: needsSettings},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE:  runSettingsShow,
}

var settingsSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose both model providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProviderSteps(cmd, embeddingStep(), llmStep())
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider",
	Long: `Choose the provider that turns chunks and questions into vectors.

Changing the embedding model invalidates the index: it is rebuilt from the
in-database folder on the next start.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProviderSteps(cmd, embeddingStep())
	},
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the answer model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProviderSteps(cmd, llmStep())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetupCmd, settingsEmbeddingCmd, settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	section(w, "index",
		"directory", s.Index.Directory,
		"name", s.Index.Name,
		"window_size", strconv.Itoa(s.Index.WindowSize))
	section(w, "retrieval",
		"top_k", strconv.Itoa(s.Retrieval.TopK),
		"top_n", strconv.Itoa(s.Retrieval.TopN),
		"shared_missing_source_id", strconv.FormatBool(s.Retrieval.SharedMissingSourceID))
	section(w, "folders",
		"staging", s.Folders.Staging,
		"in_database", s.Folders.InDatabase,
		"poll_interval", s.PollInterval.String())
	section(w, "embedding", providerRows(s.Embedding.Provider, s.Embedding.Model, s.Embedding.BaseURL,
		s.Embedding.APIKey, s.Embedding.Dimensions, s.Embedding.IsConfigured())...)
	section(w, "llm", providerRows(s.LLM.Provider, s.LLM.Model, s.LLM.BaseURL,
		s.LLM.APIKey, 0, s.LLM.IsConfigured())...)
	if s.MetricsAddr != "" {
		section(w, "metrics", "addr", s.MetricsAddr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'recall settings setup' to fix it.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

// section writes a TOML-like table header followed by aligned key/value
// pairs.
func section(w io.Writer, name string, kv ...string) {
	fmt.Fprintf(w, "[%s]\n", name)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(w, "  %s\t%s\n", kv[i], kv[i+1])
	}
	fmt.Fprintln(w)
}

func providerRows(p domain.AIProvider, model, baseURL, apiKey string, dims int, configured bool) []string {
	rows := []string{"provider", p.Description(), "model", model}
	if dims > 0 && p == domain.AIProviderHashing {
		rows = append(rows, "dimensions", strconv.Itoa(dims))
	}
	if p.IsLocal() && p != domain.AIProviderHashing {
		rows = append(rows, "base_url", baseURL)
	}
	if p.RequiresAPIKey() {
		key := "(not set)"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		rows = append(rows, "api_key", key)
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	return append(rows, "status", status)
}

// providerStep asks for one provider and stores it.
type providerStep struct {
	title     string
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	askURL    func(domain.AIProvider) bool
	save      func(p domain.AIProvider, model, apiKey, baseURL string) error
	check     func(cmd *cobra.Command) error
}

func embeddingStep() providerStep {
	return providerStep{
		title:     "Embedding provider (required to index and retrieve)",
		kind:      "embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		askURL:    func(domain.AIProvider) bool { return false },
		save: func(p domain.AIProvider, model, apiKey, _ string) error {
			return settingsService.SetEmbeddingProvider(p, model, apiKey)
		},
		check: func(cmd *cobra.Command) error { return settingsService.CheckEmbedding(cmd.Context()) },
	}
}

func llmStep() providerStep {
	return providerStep{
		title:     "LLM provider (writes answers from the retrieved chunks)",
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		askURL: func(p domain.AIProvider) bool {
			return p == domain.AIProviderChatServer || p == domain.AIProviderOllama
		},
		save: func(p domain.AIProvider, model, apiKey, baseURL string) error {
			return settingsService.SetLLMProvider(p, model, apiKey, baseURL)
		},
		check: func(cmd *cobra.Command) error { return settingsService.CheckLLM(cmd.Context()) },
	}
}

func runProviderSteps(cmd *cobra.Command, steps ...providerStep) error {
	if settingsService == nil {
		return errNoSettings
	}
	p := newPrompter(cmd)
	for _, step := range steps {
		if err := step.run(cmd, p); err != nil {
			return err
		}
	}
	if len(steps) > 1 {
		if err := settingsService.Validate(); err != nil {
			cmd.Printf("Warning: %v\n", err)
		} else {
			cmd.Println("All settings are valid and saved.")
		}
	}
	return nil
}

func (s providerStep) run(cmd *cobra.Command, p *prompter) error {
	provider := p.choose(s.title, s.providers)
	model := p.ask("Model", s.models[provider])

	var apiKey, baseURL string
	if provider.RequiresAPIKey() {
		if apiKey = p.secret("API key"); apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}
	if s.askURL(provider) {
		baseURL = p.ask("Base URL (empty for default)", "")
	}

	if err := s.save(provider, model, apiKey, baseURL); err != nil {
		return fmt.Errorf("failed to save %s provider: %w", s.kind, err)
	}

	cmd.Print("Checking provider... ")
	if err := s.check(cmd); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s provider check failed: %w", s.kind, err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider set to %s (%s)\n\n", s.kind, provider.Description(), model)
	return nil
}

// prompter reads answers line by line from the command input.
type prompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, r: bufio.NewReader(in), out: cmd.OutOrStdout()}
}

// choose lists options and returns the picked one, the first by default.
func (p *prompter) choose(title string, options []domain.AIProvider) domain.AIProvider {
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, o.Description())
	}
	fmt.Fprint(p.out, "Choice [1]: ")
	return options[parseChoice(p.line(), len(options), 1)-1]
}

// ask returns the answer, or def for an empty one.
func (p *prompter) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	if answer := p.line(); answer != "" {
		return answer
	}
	return def
}

// secret reads without echo when the input is a terminal.
func (p *prompter) secret(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	defer fmt.Fprintln(p.out)
	return readPassword(p.in, p.r)
}

func (p *prompter) line() string {
	return readLine(p.r)
}

// readLine returns the next trimmed line. A read error yields what was
// read so far, which for a closed input is an empty answer.
func readLine(r *bufio.Reader) string {
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

// parseChoice returns the 1-based choice in input, or def when input is
// not a number between 1 and n.
func parseChoice(input string, n, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return def
	}
	return v
}

func readPassword(in io.Reader, r *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return readLine(r)
}

// maskAPIKey shows the last four characters of keys long enough that they
// do not give the key away.
func maskAPIKey(key string) string {
	const shown = 4
	if len(key) < 3*shown {
		return "********"
	}
	return "********" + key[len(key)-shown:]
}
