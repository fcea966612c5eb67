package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastfind/engine/cache"
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/config"
)

var (
	buildNeedMetadata bool
	buildSave         string
	buildCompress     bool
)

var buildCmd = &cobra.Command{
	Use:   "build <root>",
	Short: "Walk a directory tree and build an in-memory index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		c := cache.NewEmpty(root)
		if !c.BuildFromRoot(context.Background(), buildNeedMetadata, cancel.New(cancel.NextVersion())) {
			return fmt.Errorf("build cancelled")
		}
		fmt.Printf("indexed %s\n", root)
		if buildSave != "" {
			if err := c.Save(buildSave, buildCompress); err != nil {
				return fmt.Errorf("save index: %w", err)
			}
			fmt.Printf("saved index to %s\n", buildSave)
		}
		return nil
	},
}

func init() {
	cfg := config.Default()
	buildCmd.Flags().BoolVar(&buildNeedMetadata, "metadata", true, "stat every entry during the build")
	buildCmd.Flags().StringVar(&buildSave, "save", cfg.PersistPath, "path to write the resulting index to")
	buildCmd.Flags().BoolVar(&buildCompress, "compress", cfg.CompressPersistence, "zstd-compress the saved index")
	rootCmd.AddCommand(buildCmd)
}
