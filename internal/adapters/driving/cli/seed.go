package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/documents/samples"
)

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed [dir]",
	Short: "Write the sample corpus",
	Long: `Writes six short sample documents on machine learning topics into dir,
or into the configured documents directory when dir is omitted. Existing
files are kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "overwrite existing files")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) > 0 {
		dir = args[0]
	} else {
		settings, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		dir = settings.Index.DocumentsDir
	}

	written, err := samples.Write(dir, seedForce)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	cmd.Printf("Created %d sample documents in %s\n", len(written), dir)
	for _, path := range written {
		cmd.Printf("  - %s\n", filepath.Base(path))
	}
	if skipped := len(samples.Names()) - len(written); skipped > 0 {
		cmd.Printf("Kept %d existing files (use --force to overwrite)\n", skipped)
	}
	return nil
}
