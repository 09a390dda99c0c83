package control

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"

	"procctl/internal/source"
)

// PIDPlaceholder is replaced by the target pid in KillCommand arguments.
const PIDPlaceholder = "{pid}"

// Killer forcibly terminates a process.
type Killer interface {
	Kill(ctx context.Context, pid int) error
}

// KillerFunc adapts a function to Killer.
type KillerFunc func(ctx context.Context, pid int) error

func (f KillerFunc) Kill(ctx context.Context, pid int) error { return f(ctx, pid) }

// KillCommand is an external termination command with a force flag.
type KillCommand struct {
	Name string
	Args []string
}

// DefaultKillCommand returns the forced-termination command for the running platform.
func DefaultKillCommand() KillCommand {
	if runtime.GOOS == "windows" {
		return KillCommand{Name: "taskkill", Args: []string{"/F", "/PID", PIDPlaceholder}}
	}
	return KillCommand{Name: "kill", Args: []string{"-9", PIDPlaceholder}}
}

// ParseKillCommand builds a KillCommand from argv; the pid placeholder is
// appended when argv does not mention it.
func ParseKillCommand(argv []string) (KillCommand, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return KillCommand{}, errors.New("kill command must not be empty")
	}
	args := append([]string(nil), argv[1:]...)
	hasPID := false
	for _, a := range args {
		if strings.Contains(a, PIDPlaceholder) {
			hasPID = true
			break
		}
	}
	if !hasPID {
		args = append(args, PIDPlaceholder)
	}
	return KillCommand{Name: argv[0], Args: args}, nil
}

// CommandKiller runs a KillCommand. Exit code 0 is trusted as proof of
// termination; the process table is not re-checked.
type CommandKiller struct {
	cmd    KillCommand
	runner source.Runner
}

// NewCommandKiller returns a killer for cmd. A nil runner uses source.ExecRunner.
func NewCommandKiller(cmd KillCommand, runner source.Runner) *CommandKiller {
	if runner == nil {
		runner = source.ExecRunner{}
	}
	return &CommandKiller{cmd: cmd, runner: runner}
}

// Kill runs the command for pid. Failures surface as *source.ExitError or
// source.ErrCommandUnavailable.
func (k *CommandKiller) Kill(ctx context.Context, pid int) error {
	p := strconv.Itoa(pid)
	args := make([]string, len(k.cmd.Args))
	for i, a := range k.cmd.Args {
		args[i] = strings.ReplaceAll(a, PIDPlaceholder, p)
	}
	_, err := k.runner.Run(ctx, k.cmd.Name, args...)
	return err
}
