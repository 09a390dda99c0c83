package app

import (
	"context"
	"time"

	procctlv1 "procctl/api/procctl/v1"

	"google.golang.org/protobuf/types/known/emptypb"
)

// Ping contacts the daemon and returns its health response.
func (a *App) Ping(ctx context.Context, timeout time.Duration) (string, error) {
	var reply string
	err := a.withClient(ctx, timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.Ping(ctx, &emptypb.Empty{})
		if err != nil {
			return rpcError("ping", err)
		}
		reply = resp.GetValue()
		return nil
	})
	return reply, err
}
