package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Runs the retrieve, analyse and synthesise workflow for one question.

The index is loaded from its location, or built from the documents
directory when the location does not exist yet, before the question is
processed. The command fails if the index cannot be opened. When no generation model
is available the answer is a summary of the retrieved context.

Examples:
  sercha-rag query "What is machine learning?"
  sercha-rag query "Explain RAG systems" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	if svc.Query == nil {
		return errors.New("query service not configured")
	}
	if err := openIndex(cmd.Context(), svc); err != nil {
		return err
	}

	res, err := svc.Query.ProcessQuery(cmd.Context(), args[0])
	if err != nil {
		return explain(err)
	}

	if queryJSON {
		return outputJSON(cmd, res)
	}
	outputResult(cmd, res)
	return nil
}

func outputResult(cmd *cobra.Command, res *domain.Result) {
	cmd.Printf("Completed in %.2fs\n", res.ProcessingSeconds())
	cmd.Println()

	cmd.Println("Workflow:")
	for i, step := range res.WorkflowSteps {
		cmd.Printf("  %d. %s\n", i+1, step)
	}
	cmd.Println()

	cmd.Println("Answer:")
	cmd.Println(res.Answer)
	cmd.Println()

	cmd.Printf("Sources used: %d\n", res.NumSources)
	for i, src := range res.Sources {
		cmd.Printf("  %d. %s\n", i+1, src)
	}
	if res.Degraded {
		cmd.Println()
		cmd.Println("Note: the analysis step fell back to the retrieved context.")
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// explain adds a remedy to errors the user can act on. Index problems are
// checked before retrieval failures since the stage wraps them.
func explain(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fmt.Errorf("invalid input: %w", err)
	case errors.Is(err, domain.ErrEmbeddingModelMismatch):
		return fmt.Errorf("index unavailable: %w (run 'sercha-rag index --rebuild')", err)
	case errors.Is(err, domain.ErrStoreNotFound), errors.Is(err, domain.ErrIndexNotOpen):
		return fmt.Errorf("index unavailable: %w (run 'sercha-rag index')", err)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("documents unavailable: %w (run 'sercha-rag seed' for a sample corpus)", err)
	case errors.Is(err, domain.ErrRetrievalFailed):
		if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrRateLimited) {
			return fmt.Errorf("%w (try --offline)", err)
		}
		return err
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrRateLimited):
		return fmt.Errorf("provider unavailable: %w (try --offline)", err)
	default:
		return fmt.Errorf("query failed: %w", err)
	}
}
