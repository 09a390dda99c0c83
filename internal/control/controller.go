package control

import (
	"context"
	"errors"
	"time"

	"procctl/internal/logging"
	"procctl/internal/notify"
	"procctl/internal/registry"
	"procctl/internal/source"
)

var log = logging.L("control")

const (
	defaultTimeout     = 5 * time.Second
	defaultListTimeout = 10 * time.Second
)

// Publisher receives one event per completed operation.
type Publisher interface {
	Publish(notify.Event)
}

// Options tunes the controller.
type Options struct {
	// Timeout bounds the wait for a terminate/spawn command.
	Timeout time.Duration
	// ListTimeout bounds a registry refresh.
	ListTimeout time.Duration
}

// Terminated is the outcome of a successful Terminate.
type Terminated struct {
	PID  int
	Name string
}

// Spawned is the outcome of a successful Spawn.
type Spawned struct {
	Name string
	PID  int
}

// Restarted is the outcome of a successful Restart.
type Restarted struct {
	Terminated Terminated
	Spawned    Spawned
}

// Controller terminates, spawns and restarts processes and keeps the
// registry in step with what it did.
type Controller struct {
	reg      *registry.Registry
	killer   Killer
	launcher Launcher
	events   Publisher

	timeout     time.Duration
	listTimeout time.Duration
}

// New wires a controller. A nil publisher discards events.
func New(reg *registry.Registry, killer Killer, launcher Launcher, events Publisher, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = defaultListTimeout
	}
	if events == nil {
		events = discard{}
	}
	return &Controller{
		reg:         reg,
		killer:      killer,
		launcher:    launcher,
		events:      events,
		timeout:     opts.Timeout,
		listTimeout: opts.ListTimeout,
	}
}

// Registry exposes the registry the controller reconciles.
func (c *Controller) Registry() *registry.Registry { return c.reg }

// Refresh re-lists processes and publishes Refreshed or Failed.
func (c *Controller) Refresh(ctx context.Context) (registry.Snapshot, error) {
	snap, err := c.refresh(ctx)
	if err != nil {
		c.events.Publish(notify.Event{Kind: notify.Failed, Op: "refresh", Err: err})
		return registry.Snapshot{}, err
	}
	c.events.Publish(notify.Event{Kind: notify.Refreshed, Count: snap.Len(), Skipped: snap.Skipped})
	return snap, nil
}

// Terminate force-kills pid. The pid must be present in the current snapshot;
// otherwise the kill command is never run.
func (c *Controller) Terminate(ctx context.Context, pid int) (Terminated, error) {
	rec, ok := c.reg.Lookup(pid)
	if !ok {
		err := &Error{Kind: KindNotFound, Op: "terminate", PID: pid}
		c.fail(err)
		return Terminated{}, err
	}
	res, err := c.terminate(ctx, rec)
	if err != nil {
		c.fail(err)
		return Terminated{}, err
	}
	c.events.Publish(notify.Event{Kind: notify.Terminated, PID: res.PID, Name: res.Name})
	return res, nil
}

// Spawn launches name without waiting for it to exit.
func (c *Controller) Spawn(ctx context.Context, name string) (Spawned, error) {
	res, err := c.spawn(ctx, name, "spawn")
	if err != nil {
		c.fail(err)
		return Spawned{}, err
	}
	c.events.Publish(notify.Event{Kind: notify.Spawned, Name: res.Name, NewPID: res.PID})
	return res, nil
}

// Restart terminates pid and launches a process with the same name. A failed
// termination is returned as-is and nothing is spawned; a failed spawn after a
// successful termination is reported as KindPartialRestart.
func (c *Controller) Restart(ctx context.Context, pid int) (Restarted, error) {
	rec, ok := c.reg.Lookup(pid)
	if !ok {
		err := &Error{Kind: KindNotFound, Op: "restart", PID: pid}
		c.fail(err)
		return Restarted{}, err
	}
	term, err := c.terminate(ctx, rec)
	if err != nil {
		c.fail(err)
		return Restarted{}, err
	}
	spawned, err := c.spawn(ctx, rec.Name, "restart")
	if err != nil {
		partial := &Error{Kind: KindPartialRestart, Op: "restart", PID: rec.PID, Name: rec.Name, ExitCode: -1, Err: err}
		c.fail(partial)
		return Restarted{Terminated: term}, partial
	}
	res := Restarted{Terminated: term, Spawned: spawned}
	c.events.Publish(notify.Event{Kind: notify.Restarted, PID: term.PID, Name: rec.Name, NewPID: spawned.PID})
	return res, nil
}

func (c *Controller) terminate(ctx context.Context, rec registry.Record) (Terminated, error) {
	_, err := await(ctx, c.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.killer.Kill(ctx, rec.PID)
	})
	if err != nil {
		return Terminated{}, classify(err, "terminate", rec.PID, rec.Name)
	}
	log.Info("process terminated", logging.KeyPID, rec.PID, logging.KeyName, rec.Name)
	c.reconcile(ctx)
	return Terminated{PID: rec.PID, Name: rec.Name}, nil
}

func (c *Controller) spawn(ctx context.Context, raw, op string) (Spawned, error) {
	name, err := normalizeTarget(raw)
	if err != nil {
		return Spawned{}, &Error{Kind: KindCommandFailed, Op: op, Name: raw, ExitCode: -1, Err: err}
	}
	pid, err := await(ctx, c.timeout, func(ctx context.Context) (int, error) {
		return c.launcher.Launch(ctx, name)
	})
	if err != nil {
		return Spawned{}, classify(err, op, 0, name)
	}
	log.Info("process spawned", logging.KeyName, name, logging.KeyPID, pid)
	c.reconcile(ctx)
	return Spawned{Name: name, PID: pid}, nil
}

func (c *Controller) refresh(ctx context.Context) (registry.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()
	snap, err := c.reg.Refresh(ctx)
	if err != nil && ctx.Err() != nil {
		return registry.Snapshot{}, &Error{Kind: KindTimeout, Op: "refresh", Err: err}
	}
	return snap, err
}

// reconcile refreshes after a mutation; failures are logged, not returned,
// since the mutation itself already succeeded.
func (c *Controller) reconcile(ctx context.Context) {
	if _, err := c.refresh(context.WithoutCancel(ctx)); err != nil {
		log.Warn("refresh after control operation failed", logging.KeyError, err)
	}
}

func (c *Controller) fail(err error) {
	ev := notify.Event{Kind: notify.Failed, Err: err}
	var ce *Error
	if errors.As(err, &ce) {
		ev.Op = ce.Op
		ev.PID = ce.PID
		ev.Name = ce.Name
	}
	log.Warn("control operation failed", logging.KeyError, err)
	c.events.Publish(ev)
}

// classify maps runner/launcher errors onto control error kinds.
func classify(err error, op string, pid int, name string) *Error {
	e := &Error{Op: op, PID: pid, Name: name, ExitCode: -1, Err: err}
	var exitErr *source.ExitError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e.Kind = KindTimeout
	case errors.As(err, &exitErr):
		e.Kind = KindCommandFailed
		e.ExitCode = exitErr.Code
	default:
		e.Kind = KindCommandFailed
	}
	return e
}

// await runs fn off the caller goroutine and waits at most timeout for it.
// fn gets a context that is never cancelled: once issued, the OS call runs to
// completion even if the wait is abandoned.
func await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		v, err := fn(detached)
		done <- result{val: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		var zero T
		return zero, context.DeadlineExceeded
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type discard struct{}

func (discard) Publish(notify.Event) {}
