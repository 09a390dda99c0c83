package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"procctl/internal/app"
	"procctl/internal/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdWatch)
}

var cmdWatch = &cobra.Command{
	Use:   "watch",
	Short: "Print daemon events as they happen",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return controller().Watch(ctx, requestTimeout(), func(ev notify.Event) error {
			fmt.Fprintf(out, "%s %-10s %s\n", ev.At.Local().Format(time.TimeOnly), ev.Kind, eventDetail(ev))
			return nil
		})
	},
}

func eventDetail(ev notify.Event) string {
	switch ev.Kind {
	case notify.Refreshed:
		if n := len(ev.Skipped); n > 0 {
			return fmt.Sprintf("%d processes (%d lines skipped)", ev.Count, n)
		}
		return fmt.Sprintf("%d processes", ev.Count)
	case notify.Terminated:
		return fmt.Sprintf("%s pid=%d", ev.Name, ev.PID)
	case notify.Spawned:
		return fmt.Sprintf("%s pid=%d", ev.Name, ev.NewPID)
	case notify.Restarted:
		return fmt.Sprintf("%s pid=%d -> %d", ev.Name, ev.PID, ev.NewPID)
	case notify.Failed:
		if ev.Err != nil {
			return app.Describe(ev.Err)
		}
		return ev.Op
	default:
		return ""
	}
}
