package source

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"procctl/internal/registry"
)

// NativeSource enumerates processes through gopsutil instead of a shell command.
type NativeSource struct {
	exclude Exclusions
	// processes is swapped in tests.
	processes func(ctx context.Context) ([]namedProcess, error)
}

type namedProcess interface {
	PID() int32
	Name(ctx context.Context) (string, error)
}

type psutilProcess struct{ p *process.Process }

func (p psutilProcess) PID() int32 { return p.p.Pid }

func (p psutilProcess) Name(ctx context.Context) (string, error) {
	return p.p.NameWithContext(ctx)
}

func psutilProcesses(ctx context.Context) ([]namedProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]namedProcess, 0, len(procs))
	for _, p := range procs {
		out = append(out, psutilProcess{p: p})
	}
	return out, nil
}

// NewNativeSource returns a gopsutil-backed source.
func NewNativeSource(exclude Exclusions) *NativeSource {
	return &NativeSource{exclude: exclude, processes: psutilProcesses}
}

// List enumerates the process table. Processes whose name cannot be read
// (typically exited mid-scan or access denied) are reported as skipped.
func (s *NativeSource) List(ctx context.Context) (registry.Listing, error) {
	procs, err := s.processes(ctx)
	if err != nil {
		return registry.Listing{}, fmt.Errorf("%w: enumerate processes: %v", ErrCommandUnavailable, err)
	}
	observedAt := time.Now().UTC()

	var listing registry.Listing
	for i, p := range procs {
		name, err := p.Name(ctx)
		if err != nil || name == "" {
			reason := "empty name"
			if err != nil {
				reason = err.Error()
			}
			listing.Skipped = append(listing.Skipped, registry.SkippedLine{
				Line:   i + 1,
				Text:   fmt.Sprintf("pid %d", p.PID()),
				Reason: reason,
			})
			continue
		}
		if s.exclude.Has(name) {
			continue
		}
		listing.Records = append(listing.Records, registry.Record{
			PID:        int(p.PID()),
			Name:       name,
			ObservedAt: observedAt,
		})
	}
	for _, sk := range listing.Skipped {
		log.Debug("skipping process without a readable name", "text", sk.Text, "reason", sk.Reason)
	}
	return listing, nil
}
