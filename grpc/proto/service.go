package proto

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "geyser.GeyserPlugin"

	nameMethod               = "/" + ServiceName + "/Name"
	onLoadMethod             = "/" + ServiceName + "/OnLoad"
	onUnloadMethod           = "/" + ServiceName + "/OnUnload"
	updateAccountMethod      = "/" + ServiceName + "/UpdateAccount"
	notifyEndOfStartupMethod = "/" + ServiceName + "/NotifyEndOfStartup"
	capabilitiesMethod       = "/" + ServiceName + "/Capabilities"
)

// GeyserPluginServer is the server API for the GeyserPlugin service
type GeyserPluginServer interface {
	Name(context.Context, *Empty) (*NameResponse, error)
	OnLoad(context.Context, *OnLoadRequest) (*Empty, error)
	OnUnload(context.Context, *Empty) (*Empty, error)
	UpdateAccount(context.Context, *UpdateAccountRequest) (*Empty, error)
	NotifyEndOfStartup(context.Context, *Empty) (*Empty, error)
	Capabilities(context.Context, *Empty) (*CapabilitiesResponse, error)
}

// GeyserPluginClient is the client API for the GeyserPlugin service
type GeyserPluginClient interface {
	Name(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NameResponse, error)
	OnLoad(ctx context.Context, in *OnLoadRequest, opts ...grpc.CallOption) (*Empty, error)
	OnUnload(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	UpdateAccount(ctx context.Context, in *UpdateAccountRequest, opts ...grpc.CallOption) (*Empty, error)
	NotifyEndOfStartup(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	Capabilities(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*CapabilitiesResponse, error)
}

type geyserPluginClient struct {
	cc grpc.ClientConnInterface
}

func NewGeyserPluginClient(cc grpc.ClientConnInterface) GeyserPluginClient {
	return &geyserPluginClient{cc}
}

func invoke[Req, Resp Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in Req, out Resp, opts []grpc.CallOption) (Resp, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	return out, nil
}

func (c *geyserPluginClient) Name(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NameResponse, error) {
	return invoke(ctx, c.cc, nameMethod, in, new(NameResponse), opts)
}

func (c *geyserPluginClient) OnLoad(ctx context.Context, in *OnLoadRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke(ctx, c.cc, onLoadMethod, in, new(Empty), opts)
}

func (c *geyserPluginClient) OnUnload(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke(ctx, c.cc, onUnloadMethod, in, new(Empty), opts)
}

func (c *geyserPluginClient) UpdateAccount(ctx context.Context, in *UpdateAccountRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke(ctx, c.cc, updateAccountMethod, in, new(Empty), opts)
}

func (c *geyserPluginClient) NotifyEndOfStartup(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke(ctx, c.cc, notifyEndOfStartupMethod, in, new(Empty), opts)
}

func (c *geyserPluginClient) Capabilities(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*CapabilitiesResponse, error) {
	return invoke(ctx, c.cc, capabilitiesMethod, in, new(CapabilitiesResponse), opts)
}

// RegisterGeyserPluginServer registers srv with s
func RegisterGeyserPluginServer(s grpc.ServiceRegistrar, srv GeyserPluginServer) {
	s.RegisterService(&GeyserPlugin_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler
func unaryHandler[Req Message, Resp Message](fullMethod string, newReq func() Req, call func(GeyserPluginServer, context.Context, Req) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GeyserPluginServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GeyserPluginServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var GeyserPlugin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GeyserPluginServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Name",
			Handler: unaryHandler(nameMethod, func() *Empty { return &Empty{} },
				func(s GeyserPluginServer, ctx context.Context, in *Empty) (*NameResponse, error) { return s.Name(ctx, in) }),
		},
		{
			MethodName: "OnLoad",
			Handler: unaryHandler(onLoadMethod, func() *OnLoadRequest { return &OnLoadRequest{} },
				func(s GeyserPluginServer, ctx context.Context, in *OnLoadRequest) (*Empty, error) { return s.OnLoad(ctx, in) }),
		},
		{
			MethodName: "OnUnload",
			Handler: unaryHandler(onUnloadMethod, func() *Empty { return &Empty{} },
				func(s GeyserPluginServer, ctx context.Context, in *Empty) (*Empty, error) { return s.OnUnload(ctx, in) }),
		},
		{
			MethodName: "UpdateAccount",
			Handler: unaryHandler(updateAccountMethod, func() *UpdateAccountRequest { return &UpdateAccountRequest{} },
				func(s GeyserPluginServer, ctx context.Context, in *UpdateAccountRequest) (*Empty, error) {
					return s.UpdateAccount(ctx, in)
				}),
		},
		{
			MethodName: "NotifyEndOfStartup",
			Handler: unaryHandler(notifyEndOfStartupMethod, func() *Empty { return &Empty{} },
				func(s GeyserPluginServer, ctx context.Context, in *Empty) (*Empty, error) {
					return s.NotifyEndOfStartup(ctx, in)
				}),
		},
		{
			MethodName: "Capabilities",
			Handler: unaryHandler(capabilitiesMethod, func() *Empty { return &Empty{} },
				func(s GeyserPluginServer, ctx context.Context, in *Empty) (*CapabilitiesResponse, error) {
					return s.Capabilities(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "geyser.proto",
}
