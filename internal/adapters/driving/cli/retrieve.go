package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	retrieveK    int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the passages most relevant to a query",
	Long: `Embeds the query and returns the k nearest passages from the index,
without running the analysis or synthesis stages.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveK, "top-k", "k", domain.DefaultTopK, "number of passages to return")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return errors.New("retrieval service not configured")
	}
	if err := openIndex(cmd.Context(), svc); err != nil {
		return err
	}

	res, err := svc.Retrieval.RetrieveContext(cmd.Context(), args[0], retrieveK)
	if err != nil {
		return explain(fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err))
	}

	if retrieveJSON {
		return outputJSON(cmd, res)
	}

	if res.NumDocs == 0 {
		cmd.Println("No passages found.")
		return nil
	}
	cmd.Printf("Retrieved %d passages from:\n", res.NumDocs)
	for i, src := range res.Sources {
		cmd.Printf("  [%d] %s\n", i+1, src)
	}
	cmd.Println()
	cmd.Println(res.Context)
	return nil
}
