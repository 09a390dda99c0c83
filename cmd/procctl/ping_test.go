package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"procctl/internal/app"
	"procctl/internal/control"
	"procctl/internal/notify"

	"github.com/spf13/cobra"
)

type stubController struct {
	pingFunc      func(ctx context.Context, timeout time.Duration) (string, error)
	listFunc      func(ctx context.Context, params app.ListParams) (app.Snapshot, error)
	terminateFunc func(ctx context.Context, params app.TargetParams) (control.Terminated, error)
	restartFunc   func(ctx context.Context, params app.TargetParams) (control.Restarted, error)
	spawnFunc     func(ctx context.Context, params app.SpawnParams) (control.Spawned, error)
	events        []notify.Event
}

func (s *stubController) Ping(ctx context.Context, timeout time.Duration) (string, error) {
	if s.pingFunc != nil {
		return s.pingFunc(ctx, timeout)
	}
	return "", errors.New("ping not implemented")
}

func (s *stubController) List(ctx context.Context, params app.ListParams) (app.Snapshot, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, params)
	}
	panic("List not implemented")
}

func (s *stubController) Refresh(ctx context.Context, timeout time.Duration) (app.Snapshot, error) {
	panic("Refresh not implemented")
}

func (s *stubController) Terminate(ctx context.Context, params app.TargetParams) (control.Terminated, error) {
	if s.terminateFunc != nil {
		return s.terminateFunc(ctx, params)
	}
	panic("Terminate not implemented")
}

func (s *stubController) Spawn(ctx context.Context, params app.SpawnParams) (control.Spawned, error) {
	if s.spawnFunc != nil {
		return s.spawnFunc(ctx, params)
	}
	panic("Spawn not implemented")
}

func (s *stubController) Restart(ctx context.Context, params app.TargetParams) (control.Restarted, error) {
	if s.restartFunc != nil {
		return s.restartFunc(ctx, params)
	}
	panic("Restart not implemented")
}

func (s *stubController) Watch(ctx context.Context, timeout time.Duration, fn func(notify.Event) error) error {
	for _, ev := range s.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubController) Status() (app.DaemonStatus, error) {
	panic("Status not implemented")
}

func (s *stubController) StopDaemon(force bool) error {
	panic("StopDaemon not implemented")
}

func (s *stubController) StartDaemon() (*app.DaemonHandle, error) {
	panic("StartDaemon not implemented")
}

func withController(t *testing.T, stub controllerAPI) {
	t.Helper()
	origFactory := controllerFactory
	controllerFactory = func() controllerAPI {
		return stub
	}
	t.Cleanup(func() {
		controllerFactory = origFactory
	})
}

func withOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	origOut := cmd.OutOrStdout()
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(origOut) })
	return buf
}

func withTimeout(t *testing.T, seconds int) {
	t.Helper()
	old := timeoutSeconds
	timeoutSeconds = seconds
	t.Cleanup(func() { timeoutSeconds = old })
}

func TestPingSuccess(t *testing.T) {
	withController(t, &stubController{
		pingFunc: func(ctx context.Context, timeout time.Duration) (string, error) {
			if timeout != 2*time.Second {
				t.Fatalf("expected timeout 2s, got %v", timeout)
			}
			return "pong", nil
		},
	})
	buf := withOutput(t, cmdPing)
	withTimeout(t, 2)

	if err := cmdPing.RunE(cmdPing, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "pong\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPingError(t *testing.T) {
	expected := errors.New("daemon down")
	withController(t, &stubController{
		pingFunc: func(ctx context.Context, timeout time.Duration) (string, error) {
			return "", expected
		},
	})
	withOutput(t, cmdPing)
	withTimeout(t, 1)

	err := cmdPing.RunE(cmdPing, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}
