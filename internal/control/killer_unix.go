//go:build unix

package control

import (
	"context"

	"golang.org/x/sys/unix"
)

// NativeKiller sends SIGKILL directly instead of shelling out.
type NativeKiller struct{}

func (NativeKiller) Kill(_ context.Context, pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}
