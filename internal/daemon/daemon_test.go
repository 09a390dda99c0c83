package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/config"
	"procctl/internal/control"
	"procctl/internal/notify"
	"procctl/internal/registry"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeTable struct {
	mu    sync.Mutex
	procs map[int]string
	next  int
}

func (f *fakeTable) list(context.Context) (registry.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var l registry.Listing
	for pid, name := range f.procs {
		l.Records = append(l.Records, registry.Record{PID: pid, Name: name})
	}
	return l, nil
}

func (f *fakeTable) kill(_ context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.procs, pid)
	return nil
}

func (f *fakeTable) launch(_ context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.procs[f.next] = name
	return f.next, nil
}

func newTestCore(table *fakeTable) *Core {
	events := notify.New()
	ctrl := control.New(
		registry.New(registry.ListerFunc(table.list)),
		control.KillerFunc(table.kill),
		control.LauncherFunc(table.launch),
		events,
		control.Options{Timeout: time.Second, ListTimeout: time.Second},
	)
	return &Core{Controller: ctrl, Events: events}
}

// shortSocketDir keeps the socket path under the sun_path limit.
func shortSocketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestSocketPathPrecedence(t *testing.T) {
	t.Setenv("PROCCTL_SOCKET", "/explicit/procctl.sock")
	t.Setenv("PROCCTL_RUNTIME_DIR", "/runtime")
	if got := SocketPath(); got != "/explicit/procctl.sock" {
		t.Fatalf("explicit socket ignored: %s", got)
	}

	t.Setenv("PROCCTL_SOCKET", "")
	if got := SocketPath(); got != filepath.Join("/runtime", SocketBaseName) {
		t.Fatalf("runtime dir ignored: %s", got)
	}
	if got := PIDPath(); got != filepath.Join("/runtime", pidFileName) {
		t.Fatalf("pid path %s", got)
	}
	if got := LockPath(); got != filepath.Join("/runtime", lockFileName) {
		t.Fatalf("lock path %s", got)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	t.Setenv("PROCCTL_SOCKET", "")
	t.Setenv("PROCCTL_RUNTIME_DIR", t.TempDir())

	if err := WritePID(4242); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	pid, err := RunningPID()
	if err != nil || pid != 4242 {
		t.Fatalf("RunningPID = %d, %v", pid, err)
	}
	if err := RemovePID(); err != nil {
		t.Fatalf("remove pid: %v", err)
	}
	if err := RemovePID(); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestNewKiller(t *testing.T) {
	cfg := config.Default()
	if _, ok := mustKiller(t, cfg).(*control.CommandKiller); !ok {
		t.Fatal("default killer should run a command")
	}
	cfg.Killer = "native"
	if _, ok := mustKiller(t, cfg).(control.NativeKiller); !ok {
		t.Fatal("expected native killer")
	}
	cfg.Killer = "polite"
	if _, err := newKiller(cfg); err == nil {
		t.Fatal("expected error for unknown killer")
	}
}

func mustKiller(t *testing.T, cfg config.Config) control.Killer {
	t.Helper()
	k, err := newKiller(cfg)
	if err != nil {
		t.Fatalf("newKiller: %v", err)
	}
	return k
}

func TestServiceListFiltersSnapshot(t *testing.T) {
	table := &fakeTable{procs: map[int]string{10: "Notepad.exe", 20: "calc.exe", 1100: "worker"}}
	core := newTestCore(table)
	if _, err := core.Controller.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	svc := newService(core.Controller, core.Events)

	resp, err := svc.List(context.Background(), wrapperspb.String("NOTE"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	snap, err := procctlv1.DecodeSnapshot(resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Records) != 1 || snap.Records[0].PID != 10 {
		t.Fatalf("unexpected filter result %+v", snap.Records)
	}

	resp, _ = svc.List(context.Background(), wrapperspb.String("10"))
	snap, _ = procctlv1.DecodeSnapshot(resp)
	if len(snap.Records) != 2 {
		t.Fatalf("pid substring should match 10 and 1100, got %+v", snap.Records)
	}
}

func TestServiceTerminateErrors(t *testing.T) {
	core := newTestCore(&fakeTable{procs: map[int]string{}})
	svc := newService(core.Controller, core.Events)

	_, err := svc.Terminate(context.Background(), wrapperspb.Int64(0))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	_, err = svc.Terminate(context.Background(), wrapperspb.Int64(99))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if !errors.Is(procctlv1.ErrorFromStatus(err), control.ErrNotFound) {
		t.Fatalf("status does not carry control kind: %v", err)
	}
}

func TestServeEndToEnd(t *testing.T) {
	dir := shortSocketDir(t)
	t.Setenv("PROCCTL_SOCKET", filepath.Join(dir, SocketBaseName))

	table := &fakeTable{procs: map[int]string{7: "editor"}, next: 100}
	srv, err := Serve(newTestCore(table), 0)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	if _, err := Serve(newTestCore(table), 0); err == nil {
		t.Fatal("second daemon should fail to take the lock")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, conn, err := Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pong, err := client.Ping(ctx, &emptypb.Empty{})
	if err != nil || pong.GetValue() != "pong" {
		t.Fatalf("ping: %v %v", pong, err)
	}

	stream, err := client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	// Watch registers asynchronously; wait until the subscriber is in place.
	deadline := time.Now().Add(2 * time.Second)
	for srv.core.Events.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watch subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := client.Restart(ctx, wrapperspb.Int64(7))
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	res := procctlv1.DecodeRestarted(resp)
	if res.Terminated.PID != 7 || res.Spawned.PID != 101 || res.Spawned.Name != "editor" {
		t.Fatalf("unexpected restart result %+v", res)
	}

	msg, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	ev, err := procctlv1.DecodeEvent(msg)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Kind != notify.Restarted || ev.PID != 7 || ev.NewPID != 101 {
		t.Fatalf("unexpected event %+v", ev)
	}

	listResp, err := client.List(ctx, wrapperspb.String(""))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	snap, _ := procctlv1.DecodeSnapshot(listResp)
	if len(snap.Records) != 1 || snap.Records[0].PID != 101 {
		t.Fatalf("registry not reconciled: %+v", snap.Records)
	}

	if !IsRunning() {
		t.Fatal("IsRunning should report the test daemon")
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := stream.Recv(); err == nil {
		t.Fatalf("stream should end after close, got %v", err)
	}
	if _, err := os.Stat(SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("socket not removed: %v", err)
	}
}

func TestHungKillerSurfacesAsTimeout(t *testing.T) {
	cases := []struct {
		name          string
		daemonTimeout time.Duration
		clientTimeout time.Duration
	}{
		{"daemon deadline", 50 * time.Millisecond, 5 * time.Second},
		{"client deadline", time.Minute, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := shortSocketDir(t)
			t.Setenv("PROCCTL_SOCKET", filepath.Join(dir, SocketBaseName))

			release := make(chan struct{})
			events := notify.New()
			table := &fakeTable{procs: map[int]string{7: "editor"}}
			ctrl := control.New(
				registry.New(registry.ListerFunc(table.list)),
				control.KillerFunc(func(context.Context, int) error {
					<-release
					return nil
				}),
				control.LauncherFunc(table.launch),
				events,
				control.Options{Timeout: tc.daemonTimeout, ListTimeout: time.Second},
			)
			srv, err := Serve(&Core{Controller: ctrl, Events: events}, 0)
			if err != nil {
				t.Fatalf("serve: %v", err)
			}
			t.Cleanup(func() { _ = srv.Close() })
			t.Cleanup(func() { close(release) })

			dialCtx, cancelDial := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelDial()
			client, conn, err := Dial(dialCtx)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), tc.clientTimeout)
			defer cancel()
			_, err = client.Terminate(ctx, wrapperspb.Int64(7))
			if !errors.Is(procctlv1.ErrorFromStatus(err), control.ErrTimeout) {
				t.Fatalf("expected timeout kind, got %v", err)
			}
		})
	}
}
