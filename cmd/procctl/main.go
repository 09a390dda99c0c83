package main

import (
	"context"
	"log"
	"time"

	"procctl/internal/app"
	"procctl/internal/tui"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "procctl [command]",
	Short:         "procctl: list, filter and control OS processes",
	Long:          `procctl talks to a small daemon that keeps a snapshot of the host's processes and can terminate, restart and spawn them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath     string
	timeoutSeconds int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (JSON, YAML or TOML)")
	rootCmd.PersistentFlags().IntVarP(&timeoutSeconds, "timeout", "t", int(app.DefaultTimeout/time.Second), "Timeout in seconds for daemon requests")
}

// controllerAPI is what the commands need from app.App.
type controllerAPI interface {
	tui.Controller
	Ping(ctx context.Context, timeout time.Duration) (string, error)
	StopDaemon(force bool) error
}

var controllerFactory = func() controllerAPI {
	return app.New(app.Options{ConfigPath: configPath})
}

func controller() controllerAPI {
	return controllerFactory()
}

func requestTimeout() time.Duration {
	return time.Duration(timeoutSeconds) * time.Second
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(app.Describe(err))
	}
}
