// Command fscache is the CLI front end for the engine: build a cache from a
// directory, search it, watch it for live updates, and save/load its state
// to disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fastfind/engine/fslog"
)

var rootCmd = &cobra.Command{
	Use:   "fscache",
	Short: "fscache - in-memory filesystem search engine",
	Long:  "fscache indexes a directory tree in memory and answers structured search queries against it, keeping the index up to date as files change.",
}

// logLevelValue validates against fslog's known levels as pflag parses it,
// rather than deferring the error to SetLevel at OnInitialize time.
type logLevelValue string

func (v *logLevelValue) String() string { return string(*v) }
func (v *logLevelValue) Type() string   { return "level" }
func (v *logLevelValue) Set(s string) error {
	switch s {
	case "debug", "info", "warn", "error":
		*v = logLevelValue(s)
		return nil
	default:
		return fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
	}
}

var logLevel = logLevelValue("info")

var _ pflag.Value = (*logLevelValue)(nil)

func init() {
	rootCmd.PersistentFlags().Var(&logLevel, "log-level", "log level (debug, info, warn, error)")
	cobra.OnInitialize(func() { fslog.SetLevel(logLevel.String()) })
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
