package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/control"
	"procctl/internal/daemon"
)

var (
	daemonIsRunning  = daemon.IsRunning
	dialDaemonClient = dialDaemon
)

func dialDaemon(ctx context.Context) (procctlv1.ProcCtlClient, io.Closer, error) {
	client, conn, err := daemon.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

func resetDaemonDeps() {
	daemonIsRunning = daemon.IsRunning
	dialDaemonClient = dialDaemon
}

func (a *App) withClient(ctx context.Context, timeout time.Duration, fn func(context.Context, procctlv1.ProcCtlClient) error) error {
	if timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if !daemonIsRunning() {
		return errors.New("daemon is not running")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, conn, err := dialDaemonClient(ctx)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	return fn(ctx, client)
}

// rpcError rebuilds typed control errors carried in a gRPC status.
func rpcError(op string, err error) error {
	err = procctlv1.ErrorFromStatus(err)
	var ce *control.Error
	if errors.As(err, &ce) && ce.Op == "" {
		ce.Op = op
	}
	return fmt.Errorf("daemon %s RPC failed: %w", op, err)
}
