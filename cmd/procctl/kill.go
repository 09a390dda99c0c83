package main

import (
	"errors"
	"fmt"

	"procctl/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdKill)
	rootCmd.AddCommand(cmdRestart)
	rootCmd.AddCommand(cmdSpawn)
}

var (
	killPID    int
	restartPID int
)

func init() {
	cmdKill.Flags().IntVarP(&killPID, "pid", "p", 0, "PID to terminate (must be in the daemon's snapshot)")
	cmdRestart.Flags().IntVarP(&restartPID, "pid", "p", 0, "PID to restart (must be in the daemon's snapshot)")
}

var cmdKill = &cobra.Command{
	Use:     "kill",
	Aliases: []string{"terminate"},
	Short:   "Force-terminate a process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if killPID <= 0 {
			return errors.New("--pid is required")
		}
		res, err := controller().Terminate(cmd.Context(), app.TargetParams{PID: killPID, Timeout: requestTimeout()})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Terminated %s (pid %d)\n", res.Name, res.PID)
		return nil
	},
}

var cmdRestart = &cobra.Command{
	Use:   "restart",
	Short: "Terminate a process and start a new one with the same name",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restartPID <= 0 {
			return errors.New("--pid is required")
		}
		res, err := controller().Restart(cmd.Context(), app.TargetParams{PID: restartPID, Timeout: requestTimeout()})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restarted %s: pid %d -> %d\n", res.Spawned.Name, res.Terminated.PID, res.Spawned.PID)
		return nil
	},
}

var cmdSpawn = &cobra.Command{
	Use:   "spawn <program>",
	Short: "Start a detached program by name or path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := controller().Spawn(cmd.Context(), app.SpawnParams{Name: args[0], Timeout: requestTimeout()})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Spawned %s (pid %d)\n", res.Name, res.PID)
		return nil
	},
}
