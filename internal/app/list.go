package app

import (
	"context"
	"strings"
	"time"

	procctlv1 "procctl/api/procctl/v1"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// List returns the daemon's current snapshot narrowed by params.Query.
// The daemon does not re-list; use Refresh for fresh data.
func (a *App) List(ctx context.Context, params ListParams) (Snapshot, error) {
	var snap Snapshot
	err := a.withClient(ctx, params.Timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.List(ctx, wrapperspb.String(strings.TrimSpace(params.Query)))
		if err != nil {
			return rpcError("list", err)
		}
		snap, err = procctlv1.DecodeSnapshot(resp)
		return err
	})
	return snap, err
}

// Refresh asks the daemon to re-list processes and returns the new snapshot.
func (a *App) Refresh(ctx context.Context, timeout time.Duration) (Snapshot, error) {
	var snap Snapshot
	err := a.withClient(ctx, timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.Refresh(ctx, &emptypb.Empty{})
		if err != nil {
			return rpcError("refresh", err)
		}
		snap, err = procctlv1.DecodeSnapshot(resp)
		return err
	})
	return snap, err
}
