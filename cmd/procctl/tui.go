package main

import (
	"fmt"

	"procctl/internal/tui"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdTUI)
}

var cmdTUI = &cobra.Command{
	Use:     "tui",
	Aliases: []string{"ui"},
	Short:   "Browse and control processes interactively",
	Long: `Open the process browser. The list follows daemon events as they arrive.

Keys: / filter, esc clear filter, x terminate, R restart, n spawn,
r refresh, s start the daemon, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tui.Run(controller()); err != nil {
			return fmt.Errorf("process browser: %w", err)
		}
		return nil
	},
}
