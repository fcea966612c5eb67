package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastfind/engine/cache"
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/config"
	"github.com/fastfind/engine/fslog"
	"github.com/fastfind/engine/internal/fsevents"
)

var (
	watchSave         string
	watchCompress     bool
	watchSaveInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <root>",
	Short: "Build an index and keep it up to date as the tree changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		ctx := context.Background()

		c := cache.NewEmpty(root)
		if !c.BuildFromRoot(ctx, true, cancel.New(cancel.NextVersion())) {
			return fmt.Errorf("initial build cancelled")
		}
		fslog.Infof(root, "initial index built")

		watcher, err := fsevents.New(root, fsevents.Options{})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Close()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		ticker := time.NewTicker(watchSaveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sigCh:
				fslog.Infof(root, "shutting down")
				return saveIfConfigured(c)
			case batch, ok := <-watcher.Batches():
				if !ok {
					return saveIfConfigured(c)
				}
				if err := c.HandleEvents(ctx, batch, cancel.New(cancel.NextVersion())); err != nil {
					fslog.Errorf(root, "failed to apply events, rebuilding: %v", err)
					if !c.BuildFromRoot(ctx, true, cancel.New(cancel.NextVersion())) {
						return fmt.Errorf("rebuild cancelled")
					}
				}
			case <-ticker.C:
				if err := saveIfConfigured(c); err != nil {
					fslog.Warnf(root, "periodic save failed: %v", err)
				}
			}
		}
	},
}

func saveIfConfigured(c *cache.SearchCache) error {
	if watchSave == "" {
		return nil
	}
	return c.Save(watchSave, watchCompress)
}

func init() {
	cfg := config.Default()
	watchCmd.Flags().StringVar(&watchSave, "save", cfg.PersistPath, "path to periodically persist the index to (empty disables autosave)")
	watchCmd.Flags().BoolVar(&watchCompress, "compress", cfg.CompressPersistence, "zstd-compress the saved index")
	watchCmd.Flags().DurationVar(&watchSaveInterval, "save-interval", 30*time.Second, "how often to autosave while watching")
	rootCmd.AddCommand(watchCmd)
}
