package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/control"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Terminate force-kills a process from the daemon's snapshot.
func (a *App) Terminate(ctx context.Context, params TargetParams) (control.Terminated, error) {
	var res control.Terminated
	if params.PID <= 0 {
		return res, fmt.Errorf("invalid pid %d", params.PID)
	}
	err := a.withClient(ctx, params.Timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.Terminate(ctx, wrapperspb.Int64(int64(params.PID)))
		if err != nil {
			return rpcError("terminate", err)
		}
		res = procctlv1.DecodeTerminated(resp)
		return nil
	})
	return res, err
}

// Spawn launches a detached program on the daemon's host.
func (a *App) Spawn(ctx context.Context, params SpawnParams) (control.Spawned, error) {
	var res control.Spawned
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return res, errors.New("program name must not be empty")
	}
	err := a.withClient(ctx, params.Timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.Spawn(ctx, wrapperspb.String(name))
		if err != nil {
			return rpcError("spawn", err)
		}
		res = procctlv1.DecodeSpawned(resp)
		return nil
	})
	return res, err
}

// Restart terminates a process and launches one with the same name.
func (a *App) Restart(ctx context.Context, params TargetParams) (control.Restarted, error) {
	var res control.Restarted
	if params.PID <= 0 {
		return res, fmt.Errorf("invalid pid %d", params.PID)
	}
	err := a.withClient(ctx, params.Timeout, func(ctx context.Context, client procctlv1.ProcCtlClient) error {
		resp, err := client.Restart(ctx, wrapperspb.Int64(int64(params.PID)))
		if err != nil {
			return rpcError("restart", err)
		}
		res = procctlv1.DecodeRestarted(resp)
		return nil
	})
	return res, err
}

// Describe renders err as a one-line status message that differs per
// control error kind.
func Describe(err error) string {
	var ce *control.Error
	if !errors.As(err, &ce) {
		return err.Error()
	}
	subject := ce.Op
	switch {
	case ce.Name != "" && ce.PID > 0:
		subject = fmt.Sprintf("%s: %s (pid %d)", ce.Op, ce.Name, ce.PID)
	case ce.Name != "":
		subject = fmt.Sprintf("%s: %s", ce.Op, ce.Name)
	case ce.PID > 0:
		subject = fmt.Sprintf("%s: pid %d", ce.Op, ce.PID)
	}
	switch ce.Kind {
	case control.KindNotFound:
		return subject + " is not in the process list; refresh and try again"
	case control.KindTimeout:
		return subject + " timed out; the command may still complete"
	case control.KindPartialRestart:
		return subject + " was terminated but could not be started again"
	default:
		if ce.ExitCode >= 0 {
			return fmt.Sprintf("%s failed with exit code %d", subject, ce.ExitCode)
		}
		if ce.Err != nil {
			return fmt.Sprintf("%s failed: %v", subject, ce.Err)
		}
		return subject + " failed"
	}
}
