package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/control"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func fill(t *testing.T, reply interface{}, s *structpb.Struct, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
	proto.Merge(reply.(proto.Message), s)
}

func TestAppTerminateRejectsInvalidPID(t *testing.T) {
	app := New(Options{})
	if _, err := app.Terminate(context.Background(), TargetParams{PID: -3, Timeout: time.Second}); err == nil || err.Error() != "invalid pid -3" {
		t.Fatalf("expected invalid pid error, got %v", err)
	}
}

func TestAppTerminateSuccess(t *testing.T) {
	var method string
	stubConn(t, &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			method = m
			if pid := args.(*wrapperspb.Int64Value).GetValue(); pid != 4321 {
				t.Fatalf("unexpected pid %d", pid)
			}
			s, err := procctlv1.EncodeTerminated(control.Terminated{PID: 4321, Name: "notepad.exe"})
			fill(t, reply, s, err)
			return nil
		},
	})

	app := New(Options{})
	res, err := app.Terminate(context.Background(), TargetParams{PID: 4321, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != procctlv1.MethodTerminate {
		t.Fatalf("called %s", method)
	}
	if res.PID != 4321 || res.Name != "notepad.exe" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAppTerminateNotFoundKeepsKind(t *testing.T) {
	stubConn(t, &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			return procctlv1.StatusFromError(&control.Error{Kind: control.KindNotFound, Op: "terminate", PID: 77})
		},
	})

	app := New(Options{})
	_, err := app.Terminate(context.Background(), TargetParams{PID: 77, Timeout: time.Second})
	if !errors.Is(err, control.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "daemon terminate RPC failed: ") {
		t.Fatalf("unexpected wrapping %q", err.Error())
	}
}

func TestAppRestartClientDeadlineIsTimeout(t *testing.T) {
	stubConn(t, &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			<-ctx.Done()
			return status.Error(codes.DeadlineExceeded, "context deadline exceeded")
		},
	})

	app := New(Options{})
	_, err := app.Restart(context.Background(), TargetParams{PID: 12, Timeout: 20 * time.Millisecond})
	if !errors.Is(err, control.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
	if got := Describe(err); got != "restart timed out; the command may still complete" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestAppSpawn(t *testing.T) {
	app := New(Options{})
	if _, err := app.Spawn(context.Background(), SpawnParams{Name: "  ", Timeout: time.Second}); err == nil {
		t.Fatal("expected error for blank name")
	}

	stubConn(t, &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			if name := args.(*wrapperspb.StringValue).GetValue(); name != "calc.exe" {
				t.Fatalf("name not trimmed: %q", name)
			}
			s, err := procctlv1.EncodeSpawned(control.Spawned{Name: "calc.exe", PID: 900})
			fill(t, reply, s, err)
			return nil
		},
	})
	res, err := app.Spawn(context.Background(), SpawnParams{Name: " calc.exe ", Timeout: time.Second})
	if err != nil || res.PID != 900 {
		t.Fatalf("unexpected spawn result %+v, %v", res, err)
	}
}

func TestAppRestartPartialFailure(t *testing.T) {
	stubConn(t, &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			return procctlv1.StatusFromError(&control.Error{
				Kind: control.KindPartialRestart, Op: "restart", PID: 5, Name: "svc", ExitCode: -1,
				Err: errors.New("exec: not found"),
			})
		},
	})

	app := New(Options{})
	_, err := app.Restart(context.Background(), TargetParams{PID: 5, Timeout: time.Second})
	if !errors.Is(err, control.ErrPartialRestart) {
		t.Fatalf("expected partial restart, got %v", err)
	}
}

func TestDescribeDistinguishesKinds(t *testing.T) {
	errs := []error{
		&control.Error{Kind: control.KindNotFound, Op: "terminate", PID: 1},
		&control.Error{Kind: control.KindCommandFailed, Op: "terminate", PID: 1, ExitCode: 128},
		&control.Error{Kind: control.KindCommandFailed, Op: "spawn", Name: "x", ExitCode: -1, Err: errors.New("no such file")},
		&control.Error{Kind: control.KindTimeout, Op: "terminate", PID: 1},
		&control.Error{Kind: control.KindPartialRestart, Op: "restart", PID: 1, Name: "x"},
		errors.New("daemon is not running"),
	}
	seen := make(map[string]bool)
	for _, err := range errs {
		msg := Describe(err)
		if msg == "" || seen[msg] {
			t.Fatalf("message %q is empty or repeated", msg)
		}
		seen[msg] = true
	}
	if got := Describe(errs[1]); !strings.Contains(got, "exit code 128") {
		t.Fatalf("exit code missing: %q", got)
	}
}
