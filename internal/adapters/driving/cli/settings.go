package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM, embedding provider, retrieval windows,
chunking and index storage.

Settings are stored in ~/.qagent/config.toml. QAGENT_* environment
variables override them for a single run.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single setting",
	Long: `Change a single setting by its dotted key.

Examples:
  qagent settings set chunking.chunk_size 800
  qagent settings set llm.timeout 90s
  qagent settings set index.backend sqlite`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively configure the embedding provider used to index documents.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Interactively configure the LLM provider used to write test cases and scripts.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

var errNoSettings = errors.New("settings service not configured")

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}
	settings, err := cfg.Settings.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	w := cmd.OutOrStdout()
	st := stylesFor(w)
	fmt.Fprintln(w, st.Title.Render("Current Settings"))

	llm := settings.LLM
	section(w, st, "LLM",
		"Provider", llm.Provider.Description(),
		"Model", llm.Model,
		"Base URL", when(llm.Provider.IsLocal(), llm.BaseURL),
		"API Key", apiKeyLine(llm.Provider, llm.APIKey),
		"Timeout", llm.Timeout.String(),
		"Temperature", strconv.FormatFloat(llm.Temperature, 'g', -1, 64),
		"Max tokens", strconv.Itoa(llm.MaxTokens),
	)
	printStatus(w, st, llm.IsConfigured())

	emb := settings.Embedding
	section(w, st, "Embedding",
		"Provider", emb.Provider.Description(),
		"Model", emb.Model,
		"Base URL", when(emb.Provider == domain.AIProviderOllama, emb.BaseURL),
		"Dimensions", when(emb.Provider == domain.AIProviderLocal, strconv.Itoa(emb.Dimensions)),
		"API Key", apiKeyLine(emb.Provider, emb.APIKey),
		"Concurrency", strconv.Itoa(emb.Concurrency),
		"Requests/sec", when(emb.RequestsPerSecond > 0, strconv.FormatFloat(emb.RequestsPerSecond, 'g', -1, 64)),
	)
	printStatus(w, st, emb.IsConfigured())

	r := settings.Retrieval
	section(w, st, "Retrieval",
		"Test cases", fmt.Sprintf("top %d, %d in prompt", r.CaseK, r.CaseContext),
		"Scripts", fmt.Sprintf("top %d, %d in prompt", r.ScriptK, r.ScriptContext),
	)
	section(w, st, "Chunking",
		"Chunk size", strconv.Itoa(settings.Chunking.ChunkSize),
		"Overlap", strconv.Itoa(settings.Chunking.Overlap),
	)
	indexPath := settings.Index.Path
	if indexPath == "" {
		indexPath = "(default)"
	}
	section(w, st, "Index",
		"Backend", settings.Index.Backend.String(),
		"Path", when(settings.Index.Backend == domain.IndexBackendSQLite, indexPath),
	)
	fmt.Fprintln(w)

	if err := cfg.Settings.Validate(); err != nil {
		fmt.Fprintln(w, st.Warning.Render("Warning: "+err.Error()))
		fmt.Fprintln(w, "Run 'qagent settings set' or 'qagent settings llm' to fix configuration issues.")
		return nil
	}
	fmt.Fprintln(w, "Configuration is valid.")
	return nil
}

// section prints a "[name]" block of label/value pairs, skipping empty values.
func section(w io.Writer, st *Styles, name string, pairs ...string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Subtitle.Render("["+name+"]"))
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			fmt.Fprintf(w, "  %s: %s\n", pairs[i], pairs[i+1])
		}
	}
}

func when(cond bool, v string) string {
	if cond {
		return v
	}
	return ""
}

func apiKeyLine(provider domain.AIProvider, key string) string {
	switch {
	case !provider.RequiresAPIKey():
		return ""
	case key == "":
		return "(not set)"
	default:
		return maskAPIKey(key)
	}
}

func printStatus(w io.Writer, st *Styles, configured bool) {
	status := st.Positive.Render("configured")
	if !configured {
		status = st.Negative.Render("not configured")
	}
	fmt.Fprintf(w, "  Status: %s\n", status)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}

	value, err := cfg.Settings.GetValue(args[0])
	if err != nil {
		return err
	}
	if strings.HasSuffix(args[0], ".api_key") && value != "" {
		value = maskAPIKey(value)
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}

	if err := cfg.Settings.SetValue(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	if strings.HasSuffix(args[0], ".api_key") {
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
		return nil
	}
	value, err := cfg.Settings.GetValue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}
	for _, key := range cfg.Settings.Keys() {
		fmt.Fprintln(cmd.OutOrStdout(), key)
	}
	return nil
}

// providerMenu is one interactive "pick a provider" flow.
type providerMenu struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	save      func(p domain.AIProvider, model, apiKey string) error
	validate  func() error
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}
	return providerMenu{
		kind:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		save:      cfg.Settings.SetEmbeddingProvider,
		validate:  cfg.Settings.ValidateEmbeddingConfig,
	}.run(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if cfg.Settings == nil {
		return errNoSettings
	}
	return providerMenu{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		save:      cfg.Settings.SetLLMProvider,
		validate:  cfg.Settings.ValidateLLMConfig,
	}.run(cmd, bufio.NewReader(cmd.InOrStdin()))
}

// run asks for provider, model and (for cloud providers) an API key, saves
// them and pings the provider. A failed ping is reported but the choice
// stays saved.
func (m providerMenu) run(cmd *cobra.Command, in *bufio.Reader) error {
	cmd.Printf("Select %s Provider\n", m.kind)
	for i, p := range m.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := m.providers[parseChoice(readLine(in), len(m.providers), 1)-1]

	model := m.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if typed := readLine(in); typed != "" {
		model = typed
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(in)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := m.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("save %s provider: %w", m.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := m.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s provider saved but unreachable: %w", m.kind, err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider configured: %s (%s)\n", m.kind, provider.Description(), model)
	return nil
}

// readLine returns the next line without its newline; EOF reads as "".
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// parseChoice returns the 1-based menu choice in input, or defaultVal
// when input is blank or out of range.
func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

// maskAPIKey keeps the first and last four characters of keys long enough
// that doing so hides most of them.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= 2*visible {
		return "****"
	}
	return key[:visible] + "..." + key[len(key)-visible:]
}
