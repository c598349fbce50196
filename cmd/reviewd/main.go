package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "reviewd",
		Short:         "Research document review service backed by guideline retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to a YAML config overlay (or set REVIEWD_CONFIG)")

	root.AddCommand(newServeCmd(), newIngestCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath resolves the overlay file: the --config flag wins, then the
// REVIEWD_CONFIG environment variable, then no overlay at all.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("REVIEWD_CONFIG")
}
