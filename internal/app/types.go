package app

import (
	"time"

	"procctl/internal/registry"
)

// DefaultTimeout bounds a single CLI/TUI round trip to the daemon. It must
// outlast the daemon's own limits so a stuck command comes back as a typed
// timeout: a restart at the default config waits for two 5s control steps and
// two 10s reconcile refreshes.
const DefaultTimeout = 35 * time.Second

// Process mirrors one entry of the daemon's snapshot.
type Process = registry.Record

// Snapshot is the daemon's process table as returned over the wire.
type Snapshot = registry.Snapshot

// ListParams narrows the snapshot by name or PID substring.
type ListParams struct {
	Query   string
	Timeout time.Duration
}

// TargetParams addresses one process by PID.
type TargetParams struct {
	PID     int
	Timeout time.Duration
}

// SpawnParams launches a program by name or path.
type SpawnParams struct {
	Name    string
	Timeout time.Duration
}
