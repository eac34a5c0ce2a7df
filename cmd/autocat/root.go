package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the autocat root command
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "autocat",
		Short: "Categorize spectral lines with automated FTMW scans",
		Long: `autocat walks a worklist of target frequencies, rescans each target under
a sequence of diagnostic tests and assigns every line a category.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("failed to parse log level: %w", err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.AddCommand(NewRunCmd())

	return cmd
}
