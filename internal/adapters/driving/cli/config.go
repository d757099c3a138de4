package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/env"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var (
	configForce  bool
	configPrompt bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View the resolved configuration or write a config file with defaults.

Values from the environment take precedence over the config file and are
marked with the variable they come from.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Long: `Writes every setting with its default value to the config file.
Existing values are kept unless --force is given. With --prompt the API
key for the configured provider is read from the terminal.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := file.NewConfigStore(configPath)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		cmd.Println(store.Path())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing values")
	configInitCmd.Flags().BoolVar(&configPrompt, "prompt", false, "ask for the provider API key")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, overlay, err := openConfig(configPath)
	if err != nil {
		return err
	}
	settings, err := services.NewSettingsService(overlay).Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	from := func(key string) string {
		if name := overlay.Source(key); name != "" {
			return " (from $" + name + ")"
		}
		return ""
	}

	cmd.Printf("Config file: %s\n", store.Path())
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s%s\n", settings.Embedding.Provider.Description(), from(services.KeyEmbedProvider))
	cmd.Printf("  Model: %s%s\n", settings.Embedding.Model, from(services.KeyEmbedModel))
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s%s\n", describeKey(settings.Embedding.APIKey), from(services.KeyEmbedAPIKey))
	}
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Printf("  Concurrency: %d\n", settings.Embedding.Concurrency)
	cmd.Println()

	cmd.Println("[Generation]")
	cmd.Printf("  Provider: %s%s\n", settings.LLM.Provider.Description(), from(services.KeyLLMProvider))
	if settings.LLM.Provider != domain.AIProviderNone {
		cmd.Printf("  Model: %s%s\n", settings.LLM.Model, from(services.KeyLLMModel))
		if settings.LLM.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
		}
		if settings.LLM.Provider.RequiresAPIKey() {
			cmd.Printf("  API Key: %s%s\n", describeKey(settings.LLM.APIKey), from(services.KeyLLMAPIKey))
		}
		cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
		cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
		cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	}
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Path: %s%s\n", settings.Index.Path, from(services.KeyIndexPath))
	cmd.Printf("  Documents: %s%s\n", settings.Index.DocumentsDir, from(services.KeyDocumentsDir))
	cmd.Printf("  Pattern: %s\n", settings.Index.Glob)
	cmd.Printf("  Chunk size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Chunk overlap: %d\n", settings.Chunking.Overlap)
	cmd.Printf("  Top k: %d\n", settings.Pipeline.TopK)
	cmd.Println()

	cmd.Println("[Rate limit]")
	cmd.Printf("  Requests per second: %.2f\n", settings.RateLimit.RequestsPerSecond)
	cmd.Printf("  Burst: %d\n", settings.RateLimit.Burst)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	written, err := store.Merge(services.DefaultConfigValues(), configForce)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	cmd.Printf("Wrote %d settings to %s\n", len(written), store.Path())

	if !configPrompt {
		return nil
	}

	provider := domain.AIProvider(strings.ToLower(env.NewOverlay(store).GetString(services.KeyEmbedProvider)))
	if !provider.RequiresAPIKey() {
		cmd.Printf("%s needs no API key.\n", provider.Description())
		return nil
	}

	key := readSecret(cmd, fmt.Sprintf("API key for %s (leave empty to skip): ", provider.Description()))
	if key == "" {
		cmd.Println("No API key saved.")
		return nil
	}
	if _, err := store.Merge(map[string]any{
		services.KeyEmbedAPIKey: key,
		services.KeyLLMAPIKey:   key,
	}, true); err != nil {
		return fmt.Errorf("save API key: %w", err)
	}
	cmd.Printf("API key saved (%s).\n", maskAPIKey(key))
	return nil
}

// readSecret reads a line without echo when stdin is a terminal, and a
// plain line otherwise.
func readSecret(cmd *cobra.Command, prompt string) string {
	cmd.Print(prompt)

	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
		return ""
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func describeKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// maskAPIKey masks an API key for display, showing only first and last 4 chars.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
