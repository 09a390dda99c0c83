package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"

	procctlv1 "procctl/api/procctl/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a gRPC connection to the daemon over the UNIX socket and waits
// until it is ready or ctx expires.
func Dial(ctx context.Context) (procctlv1.ProcCtlClient, *grpc.ClientConn, error) {
	return DialSocket(ctx, SocketPath())
}

// DialSocket is Dial for an explicit socket path.
func DialSocket(ctx context.Context, path string) (procctlv1.ProcCtlClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		// the passthrough target keeps grpc from resolving the path itself
		"passthrough:///procctl",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", path, err)
	}
	conn.Connect()
	if err := waitForReady(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return procctlv1.NewProcCtlClient(conn), conn, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		switch state := conn.GetState(); state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection is shut down")
		default:
			if !conn.WaitForStateChange(ctx, state) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("grpc connection stuck in state %s", state.String())
			}
		}
	}
}
