//go:build windows

package control

import (
	"context"

	"golang.org/x/sys/windows"
)

// NativeKiller calls TerminateProcess directly instead of shelling out.
type NativeKiller struct{}

func (NativeKiller) Kill(_ context.Context, pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}
