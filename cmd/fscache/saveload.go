package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastfind/engine/cache"
	"github.com/fastfind/engine/cancel"
)

var saveRecompress bool

var saveCmd = &cobra.Command{
	Use:   "save <in> <out>",
	Short: "Load an index and rewrite it, optionally changing compression",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.NewEmpty("")
		if err := c.Load(args[0]); err != nil {
			return fmt.Errorf("load index: %w", err)
		}
		if err := c.Save(args[1], saveRecompress); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
		fmt.Printf("wrote %s\n", args[1])
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load an index and print a one-line summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.NewEmpty("")
		if err := c.Load(args[0]); err != nil {
			return fmt.Errorf("load index: %w", err)
		}
		outcome, err := c.Search("", cache.SearchOptions{}, cancel.Noop())
		if err != nil {
			return err
		}
		fmt.Printf("root=%s last_event_id=%d entries=%d\n", c.Root(), c.LastEventID(), len(outcome.Nodes))
		return nil
	},
}

func init() {
	saveCmd.Flags().BoolVar(&saveRecompress, "compress", true, "zstd-compress the rewritten index")
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
}
