package control

import (
	"fmt"
	"strings"
)

// Kind classifies a control failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindCommandFailed
	KindTimeout
	// KindPartialRestart means the old process was terminated but its replacement did not start.
	KindPartialRestart
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCommandFailed:
		return "command_failed"
	case KindTimeout:
		return "timeout"
	case KindPartialRestart:
		return "partial_restart"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindNotFound; k <= KindPartialRestart; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown control error kind %q", s)
}

// Error is returned by every Controller operation that fails.
type Error struct {
	Kind Kind
	Op   string
	PID  int
	Name string
	// ExitCode is the termination command's status for KindCommandFailed,
	// or -1 when the command could not be run at all.
	ExitCode int
	Err      error
}

// Sentinels for errors.Is; only Kind is compared.
var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrCommandFailed  = &Error{Kind: KindCommandFailed}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrPartialRestart = &Error{Kind: KindPartialRestart}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	switch {
	case e.PID > 0 && e.Name != "":
		fmt.Fprintf(&b, " pid %d (%s)", e.PID, e.Name)
	case e.PID > 0:
		fmt.Fprintf(&b, " pid %d", e.PID)
	case e.Name != "":
		fmt.Fprintf(&b, " %s", e.Name)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}

	switch e.Kind {
	case KindNotFound:
		b.WriteString("process not found")
	case KindCommandFailed:
		if e.ExitCode >= 0 {
			fmt.Fprintf(&b, "command exited with code %d", e.ExitCode)
		} else {
			b.WriteString("command could not be run")
		}
	case KindTimeout:
		b.WriteString("timed out waiting for command")
	case KindPartialRestart:
		b.WriteString("terminated but respawn failed")
	default:
		b.WriteString("control error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
