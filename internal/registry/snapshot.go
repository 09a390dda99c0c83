package registry

import (
	"sort"
	"time"
)

// Snapshot is a full view of the process table at one instant.
// It is never mutated after construction; accessors hand out copies.
type Snapshot struct {
	Records []Record      `json:"processes" yaml:"processes"`
	Skipped []SkippedLine `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	TakenAt time.Time     `json:"taken_at" yaml:"taken_at"`
}

// Len reports how many records the snapshot holds.
func (s Snapshot) Len() int {
	return len(s.Records)
}

func newSnapshot(l Listing, takenAt time.Time) *Snapshot {
	recs := make([]Record, len(l.Records))
	copy(recs, l.Records)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].PID != recs[j].PID {
			return recs[i].PID < recs[j].PID
		}
		return recs[i].Name < recs[j].Name
	})
	return &Snapshot{
		Records: recs,
		Skipped: append([]SkippedLine(nil), l.Skipped...),
		TakenAt: takenAt,
	}
}

func (s *Snapshot) clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Records: append([]Record(nil), s.Records...),
		Skipped: append([]SkippedLine(nil), s.Skipped...),
		TakenAt: s.TakenAt,
	}
}
