package main

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wordgraph",
		Short:        "Force-directed graph of word guesses scored against a hidden word",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file (overrides WORDGRAPH_CONFIG)")
	root.AddCommand(newServeCmd(), newReplayCmd())
	return root
}
