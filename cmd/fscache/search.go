package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastfind/engine/cache"
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/config"
)

var (
	searchIndex         string
	searchCaseSensitive bool
	searchMaxResults    uint32
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Load a saved index and run a search query against it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.NewEmpty("")
		if err := c.Load(searchIndex); err != nil {
			return fmt.Errorf("load index: %w", err)
		}

		outcome, err := c.Search(args[0], cache.SearchOptions{
			CaseSensitive: searchCaseSensitive,
			MaxResults:    searchMaxResults,
		}, cancel.New(cancel.NextVersion()))
		if err != nil {
			return err
		}
		if !outcome.Ok {
			return fmt.Errorf("search cancelled")
		}

		for _, info := range c.Expand(outcome.Nodes, false, false) {
			fmt.Println(info.Path)
		}
		fmt.Printf("%d result(s)\n", len(outcome.Nodes))
		return nil
	},
}

func init() {
	cfg := config.Default()
	searchCmd.Flags().StringVar(&searchIndex, "index", cfg.PersistPath, "path to a previously saved index")
	searchCmd.Flags().BoolVar(&searchCaseSensitive, "case-sensitive", cfg.CaseSensitive, "match names case-sensitively")
	searchCmd.Flags().Uint32Var(&searchMaxResults, "max-results", cfg.MaxResults, "clamp the number of results (0 = unlimited)")
	rootCmd.AddCommand(searchCmd)
}
