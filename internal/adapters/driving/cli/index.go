package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or load the vector index",
	Long: `Loads the vector index when its location exists, otherwise loads the
documents directory, splits it into chunks, embeds them and persists the
index.

Use --rebuild after changing the corpus or the embedding model.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard the existing index and build it again")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	if svc.Index == nil {
		return errors.New("index service not configured")
	}

	if indexRebuild {
		cmd.Printf("Rebuilding index from %s...\n", svc.Settings.Index.DocumentsDir)
		if _, err := svc.Index.Rebuild(cmd.Context()); err != nil {
			return explain(err)
		}
	} else if _, err := svc.Index.CreateOrLoad(cmd.Context()); err != nil {
		return explain(err)
	}

	info, _ := svc.Index.Info()
	outputIndexInfo(cmd, info)
	return nil
}

func outputIndexInfo(cmd *cobra.Command, info domain.IndexInfo) {
	action := "Loaded"
	if info.Built {
		action = "Built"
	}
	cmd.Printf("%s index at %s\n", action, info.Location)
	cmd.Printf("  Documents: %d\n", info.Documents)
	cmd.Printf("  Chunks: %d\n", info.Entries)
	cmd.Printf("  Model: %s (%d dimensions)\n", info.EmbeddingModel, info.Dimensions)
	if !info.CreatedAt.IsZero() {
		cmd.Printf("  Created: %s\n", info.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}
