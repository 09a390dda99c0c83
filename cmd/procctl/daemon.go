package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procctl/internal/daemon"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdDaemon)
}

var daemonForceRestart bool

func init() {
	cmdDaemon.Flags().BoolVarP(&daemonForceRestart, "force", "f", false, "Restart the daemon if it is already running")
}

var cmdDaemon = &cobra.Command{
	Use:   "daemon",
	Short: "Run the daemon in the foreground",
	Long:  `Starts the daemon that owns the process snapshot. If one is already running nothing happens unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if daemon.IsRunning() {
			if !daemonForceRestart {
				pid, err := daemon.RunningPID()
				switch {
				case err != nil:
					fmt.Fprintf(out, "Error checking if daemon is running: %v\n", err)
				case pid != 0:
					fmt.Fprintf(out, "Daemon is already running (pid %d). Stop it with `procctl stop` or re-run with --force.\n", pid)
				default:
					fmt.Fprintln(out, "Daemon is already running. Stop it with `procctl stop` or re-run with --force.")
				}
				return nil
			}
			fmt.Fprintln(out, "Stopping existing daemon process...")
			if err := daemon.StopRunningDaemon(true); err != nil {
				return err
			}
		}

		srv, err := daemon.StartDaemon(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Daemon listening on %s\n", daemon.SocketPath())
		runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stdout))
		runSpin.Suffix = " Running..."
		runSpin.Start()

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		runSpin.Stop()
		return srv.Close()
	},
}
