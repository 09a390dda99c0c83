package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"procctl/internal/logging"
	"procctl/internal/registry"
)

var log = logging.L("source")

// Format describes the output layout of a process-listing command.
type Format struct {
	Name    string
	Command string
	Args    []string
	// HeaderLines are skipped verbatim before data rows begin.
	HeaderLines int
	PIDColumn   int
	NameColumn  int
	// NameToEnd joins every field from NameColumn to the end of the line.
	NameToEnd bool
	// BaseName reduces a path-like name to its last element.
	BaseName bool
}

// Tasklist is the default Windows `tasklist` table: a blank line, the column
// titles and a rule of '=' precede the data rows.
var Tasklist = Format{
	Name:        "tasklist",
	Command:     "tasklist",
	HeaderLines: 3,
	PIDColumn:   1,
	NameColumn:  0,
}

// PS is the portable `ps` listing used on unix-like systems.
var PS = Format{
	Name:       "ps",
	Command:    "ps",
	Args:       []string{"-axo", "pid=,comm="},
	PIDColumn:  0,
	NameColumn: 1,
	NameToEnd:  true,
	BaseName:   true,
}

// DefaultFormat returns the listing format for the running platform.
func DefaultFormat() Format {
	if runtime.GOOS == "windows" {
		return Tasklist
	}
	return PS
}

// CommandSource lists processes by running a platform command and parsing its output.
type CommandSource struct {
	format  Format
	runner  Runner
	exclude Exclusions
	clock   func() time.Time
}

// NewCommandSource builds a command-backed source. A nil runner uses ExecRunner.
func NewCommandSource(format Format, runner Runner, exclude Exclusions) *CommandSource {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CommandSource{
		format:  format,
		runner:  runner,
		exclude: exclude,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// List runs the listing command. Lines that cannot be parsed are skipped and
// reported in the listing; only command-level failures are returned as errors.
func (s *CommandSource) List(ctx context.Context) (registry.Listing, error) {
	out, err := s.runner.Run(ctx, s.format.Command, s.format.Args...)
	if err != nil {
		return registry.Listing{}, fmt.Errorf("list processes via %s: %w", s.format.Command, err)
	}
	listing := Parse(out, s.format, s.exclude, s.clock())
	for _, sk := range listing.Skipped {
		log.Warn("skipping unparsable process line",
			"line", sk.Line, "text", sk.Text, "reason", sk.Reason)
	}
	return listing, nil
}

// Parse converts raw listing output into records.
func Parse(out []byte, f Format, exclude Exclusions, observedAt time.Time) registry.Listing {
	var listing registry.Listing

	minFields := max(f.PIDColumn, f.NameColumn) + 1
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= f.HeaderLines {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		fields := strings.Fields(line)
		if len(fields) < minFields {
			continue
		}

		pid, err := strconv.Atoi(fields[f.PIDColumn])
		if err != nil || pid < 0 {
			listing.Skipped = append(listing.Skipped, registry.SkippedLine{
				Line:   lineNo,
				Text:   line,
				Reason: fmt.Sprintf("invalid pid %q", fields[f.PIDColumn]),
			})
			continue
		}

		name := fields[f.NameColumn]
		if f.NameToEnd {
			name = strings.Join(fields[f.NameColumn:], " ")
		}
		if f.BaseName {
			name = filepath.Base(name)
		}
		if exclude.Has(name) {
			continue
		}
		listing.Records = append(listing.Records, registry.Record{
			PID:        pid,
			Name:       name,
			ObservedAt: observedAt,
		})
	}
	return listing
}
