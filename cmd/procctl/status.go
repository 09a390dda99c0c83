package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdStatus)
}

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := controller().Status()
		out := cmd.OutOrStdout()
		switch {
		case !st.Running:
			fmt.Fprintf(out, "Daemon is not running (socket %s)\n", st.Socket)
		case st.PID > 0:
			fmt.Fprintf(out, "Daemon is running (pid %d, socket %s)\n", st.PID, st.Socket)
		default:
			fmt.Fprintf(out, "Daemon is running (socket %s)\n", st.Socket)
		}
		return err
	},
}
