package registry

import (
	"context"
	"time"
)

// Record is one process observed in a listing.
// PIDs are unique within a single snapshot only; the OS may reuse them later.
type Record struct {
	PID        int       `json:"pid" yaml:"pid"`
	Name       string    `json:"name" yaml:"name"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// SkippedLine describes listing output that could not be turned into a Record.
type SkippedLine struct {
	Line   int    `json:"line" yaml:"line"`
	Text   string `json:"text" yaml:"text"`
	Reason string `json:"reason" yaml:"reason"`
}

// Listing is the result of one enumeration pass.
type Listing struct {
	Records []Record
	Skipped []SkippedLine
}

// Lister enumerates the live process table.
type Lister interface {
	List(ctx context.Context) (Listing, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) (Listing, error)

func (f ListerFunc) List(ctx context.Context) (Listing, error) {
	return f(ctx)
}
