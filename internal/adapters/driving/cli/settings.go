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

	"github.com/custodia-labs/casemap/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure pipeline settings and AI providers.

Use subcommands to change single values, configure providers or run the
interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting by its dotted key.

Examples:
  casemap settings set reducer.neighbors 30
  casemap settings set annotator.concurrency 4
  casemap settings set taxonomy.path ./categories.yaml

Run 'casemap settings show' for the list of keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the AI providers step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used by 'casemap embed'.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that names and classifies clusters.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	group := ""
	for _, key := range settingsService.Keys() {
		prefix, _, _ := strings.Cut(key, ".")
		if prefix != group {
			group = prefix
			cmd.Printf("\n[%s]\n", group)
		}
		value, _ := settingsService.Value(settings, key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-28s %s\n", key, value)
	}
	cmd.Println()

	cmd.Println("[Providers]")
	printProvider(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	printProvider(cmd, "LLM", settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'casemap settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, label string, provider domain.AIProvider, model, apiKey string, configured bool) {
	if !configured {
		cmd.Printf("  %-10s not configured\n", label+":")
		return
	}
	line := fmt.Sprintf("%s, %s", provider.Description(), model)
	if provider.RequiresAPIKey() {
		line += ", key " + maskAPIKey(apiKey)
	}
	cmd.Printf("  %-10s %s\n", label+":", line)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	value, ok := settingsService.Value(settings, args[0])
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidSettings, args[0])
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s updated\n", args[0])
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("casemap Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: LLM provider, required to name clusters
	cmd.Println("Step 1: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM names and classifies every cluster. Without one, runs")
	cmd.Println("fall back to numbered names.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	// Step 2: optional embedding provider
	cmd.Println("Step 2: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Only needed when your corpus has no embeddings yet.")
	cmd.Print("Configure now? [y/N]: ")
	if answer := strings.ToLower(readLine(reader)); answer == "y" || answer == "yes" {
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped.")
		cmd.Println()
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

// providerChoice prompts for a provider, a model and an API key when the
// provider needs one.
func providerChoice(
	cmd *cobra.Command,
	reader *bufio.Reader,
	title string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (provider domain.AIProvider, model, apiKey string, err error) {
	cmd.Println(title)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider = providers[idx-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model = readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, model, apiKey, err := providerChoice(cmd, reader, "Select Embedding Provider",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, model, apiKey, err := providerChoice(cmd, reader, "Select LLM Provider",
		domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to a
// plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
