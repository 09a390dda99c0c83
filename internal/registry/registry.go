package registry

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// Registry is a threadsafe holder of the latest process snapshot.
// A refresh swaps the whole snapshot, so readers never see a partial mix.
type Registry struct {
	lister Lister

	// refreshMu serializes refreshes so an older listing cannot land after a newer one.
	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap *Snapshot
}

// New returns an empty registry backed by the given lister.
func New(lister Lister) *Registry {
	return &Registry{
		lister: lister,
		snap:   &Snapshot{},
	}
}

// Refresh lists processes and replaces the snapshot wholesale.
// On error the previous snapshot stays in place.
func (r *Registry) Refresh(ctx context.Context) (Snapshot, error) {
	if r.lister == nil {
		return Snapshot{}, errors.New("registry has no lister")
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	listing, err := r.lister.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	next := newSnapshot(listing, now())

	r.mu.Lock()
	r.snap = next
	r.mu.Unlock()

	return next.clone(), nil
}

// Snapshot returns a copy of the current snapshot.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.clone()
}

// Filter applies the search query to the current snapshot.
func (r *Registry) Filter(query string) []Record {
	r.mu.RLock()
	recs := r.snap.Records
	r.mu.RUnlock()
	return Filter(recs, query)
}

// Lookup finds a pid in the current snapshot.
func (r *Registry) Lookup(pid int) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.snap.Records {
		if rec.PID == pid {
			return rec, true
		}
	}
	return Record{}, false
}

// Filter returns the records matching query. An empty query matches everything;
// otherwise a record matches when its name contains the query case-insensitively
// or its decimal pid contains the query as a substring.
func Filter(records []Record, query string) []Record {
	out := make([]Record, 0, len(records))
	if query == "" {
		return append(out, records...)
	}
	q := strings.ToLower(query)
	for _, rec := range records {
		if Matches(rec, q) {
			out = append(out, rec)
		}
	}
	return out
}

// Matches reports whether rec satisfies an already lower-cased query.
func Matches(rec Record, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.Name), lowerQuery) ||
		strings.Contains(strconv.Itoa(rec.PID), lowerQuery)
}
