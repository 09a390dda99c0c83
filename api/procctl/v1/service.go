// Package procctlv1 defines the procctl.v1.ProcCtl gRPC service.
//
// Messages are protobuf well-known types (Empty, StringValue, Int64Value and
// Struct), so the service needs no generated code; the Encode*/Decode*
// helpers in this package define the Struct layouts.
package procctlv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "procctl.v1.ProcCtl"

const (
	MethodPing      = "/" + ServiceName + "/Ping"
	MethodList      = "/" + ServiceName + "/List"
	MethodRefresh   = "/" + ServiceName + "/Refresh"
	MethodTerminate = "/" + ServiceName + "/Terminate"
	MethodSpawn     = "/" + ServiceName + "/Spawn"
	MethodRestart   = "/" + ServiceName + "/Restart"
	MethodWatch     = "/" + ServiceName + "/Watch"
)

// ProcCtlServer is implemented by the daemon.
type ProcCtlServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	List(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Refresh(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Terminate(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	Spawn(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Restart(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	Watch(*emptypb.Empty, ProcCtl_WatchServer) error
}

// ProcCtl_WatchServer is the server side of the Watch stream.
type ProcCtl_WatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterProcCtlServer attaches srv to a gRPC server.
func RegisterProcCtlServer(s grpc.ServiceRegistrar, srv ProcCtlServer) {
	s.RegisterService(&ProcCtl_ServiceDesc, srv)
}

// ProcCtl_ServiceDesc describes the service for grpc.Server.
var ProcCtl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProcCtlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary[emptypb.Empty]("Ping", ProcCtlServer.Ping),
		unary[wrapperspb.StringValue]("List", ProcCtlServer.List),
		unary[emptypb.Empty]("Refresh", ProcCtlServer.Refresh),
		unary[wrapperspb.Int64Value]("Terminate", ProcCtlServer.Terminate),
		unary[wrapperspb.StringValue]("Spawn", ProcCtlServer.Spawn),
		unary[wrapperspb.Int64Value]("Restart", ProcCtlServer.Restart),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "procctl/v1/procctl.proto",
}

func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](name string, call func(ProcCtlServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProcCtlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ProcCtlServer), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ProcCtlServer).Watch(m, &watchServer{stream})
}
