package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"procctl/internal/daemon"
	"procctl/internal/logging"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

var log = logging.L("main")

func main() {
	configPath := flag.StringP("config", "c", "", "Path to config file (JSON, YAML or TOML)")
	force := flag.BoolP("force", "f", false, "Stop an existing daemon before starting")
	flag.Parse()

	// Set only fails on an invalid GOMAXPROCS value; runtime defaults apply then.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	if daemon.IsRunning() {
		if !*force {
			pid, err := daemon.RunningPID()
			if err != nil {
				fatal("daemon appears running but pid check failed", err)
			}
			log.Info("daemon is already running; use --force to restart", logging.KeyPID, pid)
			return
		}
		log.Info("stopping existing daemon")
		if err := daemon.StopRunningDaemon(true); err != nil {
			fatal("failed to stop running daemon", err)
		}
	}

	srv, err := daemon.StartDaemon(*configPath)
	if err != nil {
		fatal("failed to start daemon", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info("stopping daemon", "signal", sig.String())
	if err := srv.Close(); err != nil {
		fatal("error shutting down daemon", err)
	}
}

func fatal(msg string, err error) {
	log.Error(msg, logging.KeyError, err)
	os.Exit(1)
}
