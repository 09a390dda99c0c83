package daemon

import (
	"context"
	"sync"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/control"
	"procctl/internal/logging"
	"procctl/internal/notify"
	"procctl/internal/registry"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var log = logging.L("daemon")

// watchBuffer bounds the events queued for one slow Watch client.
const watchBuffer = 64

type controller interface {
	Registry() *registry.Registry
	Refresh(ctx context.Context) (registry.Snapshot, error)
	Terminate(ctx context.Context, pid int) (control.Terminated, error)
	Spawn(ctx context.Context, name string) (control.Spawned, error)
	Restart(ctx context.Context, pid int) (control.Restarted, error)
}

type subscriber interface {
	Subscribe(h notify.Handler) notify.Handle
	Unsubscribe(h notify.Handle)
}

// service implements the ProcCtl gRPC service backed by the controller.
type service struct {
	ctrl   controller
	events subscriber
}

func newService(ctrl controller, events subscriber) *service {
	return &service{ctrl: ctrl, events: events}
}

func (s *service) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("pong"), nil
}

func (s *service) List(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	snap := s.ctrl.Registry().Snapshot()
	records := registry.Filter(snap.Records, req.GetValue())
	return encode(procctlv1.EncodeSnapshot(snap, records))
}

func (s *service) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.ctrl.Refresh(ctx)
	if err != nil {
		return nil, procctlv1.StatusFromError(err)
	}
	return encode(procctlv1.EncodeSnapshot(snap, nil))
}

func (s *service) Terminate(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	pid, err := pidArg(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.Terminate(ctx, pid)
	if err != nil {
		return nil, procctlv1.StatusFromError(err)
	}
	return encode(procctlv1.EncodeTerminated(res))
}

func (s *service) Spawn(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.ctrl.Spawn(ctx, req.GetValue())
	if err != nil {
		return nil, procctlv1.StatusFromError(err)
	}
	return encode(procctlv1.EncodeSpawned(res))
}

func (s *service) Restart(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	pid, err := pidArg(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.Restart(ctx, pid)
	if err != nil {
		return nil, procctlv1.StatusFromError(err)
	}
	return encode(procctlv1.EncodeRestarted(res))
}

// Watch streams notifier events until the client goes away. A client that
// falls watchBuffer events behind is cut off with ResourceExhausted.
func (s *service) Watch(_ *emptypb.Empty, stream procctlv1.ProcCtl_WatchServer) error {
	ch := make(chan notify.Event, watchBuffer)
	overflow := make(chan struct{})
	var once sync.Once

	handle := s.events.Subscribe(func(ev notify.Event) {
		select {
		case ch <- ev:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer s.events.Unsubscribe(handle)
	log.Debug("watch subscribed", "handle", handle.String())

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-overflow:
			log.Warn("watch client too slow, dropping", "handle", handle.String())
			return status.Error(codes.ResourceExhausted, "watch client fell behind")
		case ev := <-ch:
			msg, err := procctlv1.EncodeEvent(ev)
			if err != nil {
				return status.Errorf(codes.Internal, "encode event: %v", err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func pidArg(req *wrapperspb.Int64Value) (int, error) {
	pid := req.GetValue()
	if pid <= 0 {
		return 0, status.Error(codes.InvalidArgument, "pid must be positive")
	}
	return int(pid), nil
}

func encode(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}
