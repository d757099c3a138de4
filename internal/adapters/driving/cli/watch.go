package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	watchRebuild bool
	watchDelay   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report changes to the documents directory",
	Long: `Watches the documents directory and prints each created, updated or
deleted document. The index is not refreshed automatically: with --rebuild
it is rebuilt once changes have settled for the --delay period.

Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchRebuild, "rebuild", false, "rebuild the index after changes settle")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 2*time.Second, "quiet period before a rebuild")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	if svc.Watcher == nil {
		return errors.New("corpus watcher not configured")
	}
	if watchRebuild && svc.Index == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	changes, err := svc.Watcher.Watch(ctx)
	if err != nil {
		return explain(err)
	}
	cmd.Printf("Watching %s for changes...\n", svc.Settings.Index.DocumentsDir)

	return watchLoop(ctx, cmd, svc, changes)
}

// watchLoop prints changes until the channel closes. Pending rebuilds are
// coalesced into one after the quiet period.
func watchLoop(ctx context.Context, cmd *cobra.Command, svc *Services, changes <-chan domain.CorpusChange) error {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		stale   bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			cmd.Printf("%s %s\n", change.Type, change.Path)

			if !watchRebuild {
				if !stale {
					cmd.Println("The index is stale; run 'sercha-rag index --rebuild' to refresh it.")
					stale = true
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDelay)
			} else {
				timer.Reset(watchDelay)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if _, err := svc.Index.Rebuild(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("rebuild failed: %v", err)
				continue
			}
			info, _ := svc.Index.Info()
			cmd.Printf("Rebuilt index: %d documents, %d chunks\n", info.Documents, info.Entries)

		case <-ctx.Done():
			return nil
		}
	}
}
