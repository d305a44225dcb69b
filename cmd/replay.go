package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/wordgraph/internal/replay"
	"github.com/okian/wordgraph/pkg/logger"
)

func newReplayCmd() *cobra.Command {
	var (
		maxTicks int
		noColor  bool
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <script.toml>",
		Short: "Play a scripted game headlessly and print where the layout settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			_ = logger.SetLevelString(level)

			script, err := replay.Load(args[0])
			if err != nil {
				return err
			}
			rep, runErr := replay.Run(cmd.Context(), script,
				replay.WithMaxTicks(maxTicks),
				replay.WithLogger(logger.Get()),
			)
			if rep != nil {
				replay.Print(cmd.OutOrStdout(), rep)
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "tick budget per round (default from script, else 3000)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity")
	return cmd
}
