package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "squeezetrader.control.v1.TraderControl"

// -----------------------------------------------------------------------------
// TraderControlServer is the server API for the control service. Messages are
// well-known protobuf types so no generated code is needed.
// -----------------------------------------------------------------------------

type TraderControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Panic(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterTraderControlServer(s grpc.ServiceRegistrar, srv TraderControlServer) {
	s.RegisterService(&TraderControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func _TraderControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraderControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TraderControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _TraderControl_Panic_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraderControlServer).Panic(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Panic"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TraderControlServer).Panic(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _TraderControl_ListTrades_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraderControlServer).ListTrades(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListTrades"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TraderControlServer).ListTrades(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

var TraderControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TraderControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _TraderControl_GetStatus_Handler},
		{MethodName: "Panic", Handler: _TraderControl_Panic_Handler},
		{MethodName: "ListTrades", Handler: _TraderControl_ListTrades_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "squeeze_trader/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type TraderControlClient struct {
	cc grpc.ClientConnInterface
}

func NewTraderControlClient(cc grpc.ClientConnInterface) *TraderControlClient {
	return &TraderControlClient{cc: cc}
}

func (c *TraderControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TraderControlClient) Panic(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Panic", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TraderControlClient) ListTrades(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListTrades", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
