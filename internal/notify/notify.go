// Package notify delivers process inventory change events to subscribers.
//
// Delivery is synchronous and serialized, so every subscriber observes events
// in the order operations completed. The notifier never buffers or coalesces;
// a consumer that needs decoupling wraps its handler with its own queue.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"procctl/internal/logging"
	"procctl/internal/registry"
)

var log = logging.L("notify")

// Kind is the type of an event.
type Kind int

const (
	// Refreshed follows a registry refresh.
	Refreshed Kind = iota + 1
	// Terminated follows a successful terminate.
	Terminated
	// Spawned follows a successful spawn.
	Spawned
	// Restarted follows a restart whose terminate and spawn both succeeded.
	Restarted
	// Failed follows any operation that returned an error.
	Failed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Refreshed:
		return "refreshed"
	case Terminated:
		return "terminated"
	case Spawned:
		return "spawned"
	case Restarted:
		return "restarted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := Refreshed; k <= Failed; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event describes the outcome of one operation.
type Event struct {
	ID   uuid.UUID
	Kind Kind
	At   time.Time

	// PID is set for Terminated, Restarted and pid-targeted failures.
	PID int
	// Name is the process name for Terminated/Spawned/Restarted.
	Name string
	// NewPID is the launched child for Spawned and Restarted.
	NewPID int
	// Count is the snapshot size for Refreshed.
	Count int
	// Skipped carries the listing lines dropped while refreshing.
	Skipped []registry.SkippedLine
	// Op names the failed operation for Failed.
	Op  string
	Err error
}

// Handler receives events.
type Handler func(Event)

// Handle identifies a subscription.
type Handle uuid.UUID

func (h Handle) String() string { return uuid.UUID(h).String() }

// Notifier fans events out to subscribers.
type Notifier struct {
	mu       sync.RWMutex
	handlers map[Handle]Handler
	order    []Handle
	closed   bool

	// publishMu serializes delivery so subscribers see completion order.
	publishMu sync.Mutex
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{handlers: make(map[Handle]Handler)}
}

// Subscribe registers h and returns its handle.
func (n *Notifier) Subscribe(h Handler) Handle {
	handle := Handle(uuid.New())
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return handle
	}
	n.handlers[handle] = h
	n.order = append(n.order, handle)
	return handle
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (n *Notifier) Unsubscribe(handle Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.handlers[handle]; !ok {
		return
	}
	delete(n.handlers, handle)
	for i, h := range n.order {
		if h == handle {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}

// Publish stamps ev and delivers it to every subscriber in subscription order.
func (n *Notifier) Publish(ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	n.publishMu.Lock()
	defer n.publishMu.Unlock()

	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	targets := make([]Handler, 0, len(n.order))
	for _, h := range n.order {
		targets = append(targets, n.handlers[h])
	}
	n.mu.RUnlock()

	for _, h := range targets {
		deliver(h, ev)
	}
}

// Close drops all subscribers; later publishes are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.handlers = make(map[Handle]Handler)
	n.order = nil
}

func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event handler panicked", "kind", ev.Kind.String(), "panic", r)
		}
	}()
	h(ev)
}
