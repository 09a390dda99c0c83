package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/notify"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Watch streams daemon events to fn until ctx is cancelled, the daemon goes
// away or fn returns an error. dialTimeout bounds only the connection setup.
func (a *App) Watch(ctx context.Context, dialTimeout time.Duration, fn func(notify.Event) error) error {
	if dialTimeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if !daemonIsRunning() {
		return errors.New("daemon is not running")
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	client, conn, err := dialDaemonClient(dialCtx)
	cancelDial()
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		return rpcError("watch", err)
	}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return nil
			}
			return rpcError("watch", err)
		}
		ev, err := procctlv1.DecodeEvent(msg)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
