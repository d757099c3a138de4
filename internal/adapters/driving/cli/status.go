package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and provider status",
	Long: `Reports whether the index exists, what it was built from, and where
the corpus lives. With --check the embedding and generation providers are
contacted to verify the configuration.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "contact the configured providers")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	if svc.Store == nil {
		return errors.New("index store not configured")
	}

	cmd.Println("[Index]")
	cmd.Printf("  Location: %s\n", svc.Store.Location())
	if !svc.Store.Exists() {
		cmd.Println("  Status: not built (run 'sercha-rag index')")
	} else {
		info, err := svc.Store.ReadInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
		cmd.Println("  Status: ready")
		cmd.Printf("  Documents: %d\n", info.Documents)
		cmd.Printf("  Chunks: %d\n", info.Entries)
		cmd.Printf("  Model: %s (%d dimensions)\n", info.EmbeddingModel, info.Dimensions)
		if !info.CreatedAt.IsZero() {
			cmd.Printf("  Created: %s\n", info.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if info.EmbeddingModel != "" && info.EmbeddingModel != svc.Settings.Embedding.Model && !offline {
			cmd.Printf("  Warning: configured model is %s; rebuild the index to use it\n",
				svc.Settings.Embedding.Model)
		}
	}
	cmd.Println()

	cmd.Println("[Corpus]")
	cmd.Printf("  Directory: %s\n", svc.Settings.Index.DocumentsDir)
	cmd.Printf("  Pattern: %s\n", svc.Settings.Index.Glob)
	cmd.Println()

	cmd.Println("[Providers]")
	cmd.Printf("  Embedding: %s (%s)\n", svc.Settings.Embedding.Provider.Description(), svc.Settings.Embedding.Model)
	if svc.Settings.LLM.Provider == domain.AIProviderNone {
		cmd.Println("  Generation: disabled")
	} else {
		cmd.Printf("  Generation: %s (%s)\n", svc.Settings.LLM.Provider.Description(), svc.Settings.LLM.Model)
	}
	for _, w := range svc.Warnings {
		cmd.Printf("  Warning: %s\n", w)
	}

	if statusCheck && svc.Health != nil {
		cmd.Println()
		cmd.Println("[Health]")
		for _, check := range svc.Health(cmd.Context()) {
			cmd.Printf("  %s: %s\n", check.Name, healthState(check))
		}
	}
	return nil
}

func healthState(check HealthCheck) string {
	switch {
	case check.Skipped:
		return "skipped"
	case check.Err != nil:
		return "failed: " + check.Err.Error()
	default:
		return "ok"
	}
}
