package control

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const maxTargetLen = 4096

// Launcher starts a program without waiting for it to finish.
type Launcher interface {
	Launch(ctx context.Context, name string) (pid int, err error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, name string) (int, error)

func (f LauncherFunc) Launch(ctx context.Context, name string) (int, error) { return f(ctx, name) }

// ExecLauncher starts programs through os/exec in their own process group.
type ExecLauncher struct{}

// Launch starts name. The child is reaped in the background and is not tied
// to ctx: cancelling the caller never kills the launched program.
func (ExecLauncher) Launch(_ context.Context, name string) (int, error) {
	cmd := exec.Command(name)
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

func normalizeTarget(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.New("executable name must not be empty")
	}
	if len(name) > maxTargetLen {
		return "", fmt.Errorf("executable name is too long (max %d characters)", maxTargetLen)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("executable name %q contains a NUL byte", name)
	}
	return name, nil
}
