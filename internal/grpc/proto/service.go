package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "shortlink.v1.Links"

// Полные имена методов
const (
	LinksIssueFullMethod            = "/" + ServiceName + "/Issue"
	LinksResolveFullMethod          = "/" + ServiceName + "/Resolve"
	LinksVerifyAndResolveFullMethod = "/" + ServiceName + "/VerifyAndResolve"
	LinksListLinksFullMethod        = "/" + ServiceName + "/ListLinks"
	LinksPingFullMethod             = "/" + ServiceName + "/Ping"
	LinksGetStatsFullMethod         = "/" + ServiceName + "/GetStats"
)

// LinksServer серверная часть сервиса коротких ссылок
type LinksServer interface {
	Issue(ctx context.Context, req *IssueRequest) (*IssueResponse, error)
	Resolve(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error)
	VerifyAndResolve(ctx context.Context, req *VerifyAndResolveRequest) (*VerifyAndResolveResponse, error)
	ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error)
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	GetStats(ctx context.Context, req *GetStatsRequest) (*GetStatsResponse, error)
}

// UnimplementedLinksServer отвечает codes.Unimplemented на все методы
type UnimplementedLinksServer struct{}

func (UnimplementedLinksServer) Issue(context.Context, *IssueRequest) (*IssueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Issue not implemented")
}

func (UnimplementedLinksServer) Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Resolve not implemented")
}

func (UnimplementedLinksServer) VerifyAndResolve(context.Context, *VerifyAndResolveRequest) (*VerifyAndResolveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyAndResolve not implemented")
}

func (UnimplementedLinksServer) ListLinks(context.Context, *ListLinksRequest) (*ListLinksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListLinks not implemented")
}

func (UnimplementedLinksServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func (UnimplementedLinksServer) GetStats(context.Context, *GetStatsRequest) (*GetStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStats not implemented")
}

// RegisterLinksServer регистрирует реализацию сервиса в gRPC сервере
func RegisterLinksServer(s grpc.ServiceRegistrar, srv LinksServer) {
	s.RegisterService(&LinksServiceDesc, srv)
}

// unaryHandler собирает обработчик метода в форме, которую ожидает grpc.MethodDesc
func unaryHandler[Req any, Resp any](fullMethod string, call func(LinksServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LinksServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LinksServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LinksServiceDesc описание сервиса для grpc.Server
var LinksServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LinksServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: unaryHandler(LinksIssueFullMethod, LinksServer.Issue)},
		{MethodName: "Resolve", Handler: unaryHandler(LinksResolveFullMethod, LinksServer.Resolve)},
		{MethodName: "VerifyAndResolve", Handler: unaryHandler(LinksVerifyAndResolveFullMethod, LinksServer.VerifyAndResolve)},
		{MethodName: "ListLinks", Handler: unaryHandler(LinksListLinksFullMethod, LinksServer.ListLinks)},
		{MethodName: "Ping", Handler: unaryHandler(LinksPingFullMethod, LinksServer.Ping)},
		{MethodName: "GetStats", Handler: unaryHandler(LinksGetStatsFullMethod, LinksServer.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shortlink/v1/links.proto",
}

// LinksClient клиентская часть сервиса коротких ссылок
type LinksClient interface {
	Issue(ctx context.Context, in *IssueRequest, opts ...grpc.CallOption) (*IssueResponse, error)
	Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	VerifyAndResolve(ctx context.Context, in *VerifyAndResolveRequest, opts ...grpc.CallOption) (*VerifyAndResolveResponse, error)
	ListLinks(ctx context.Context, in *ListLinksRequest, opts ...grpc.CallOption) (*ListLinksResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*GetStatsResponse, error)
}

type linksClient struct {
	cc grpc.ClientConnInterface
}

// NewLinksClient создаёт клиента, использующего JSON-кодек
func NewLinksClient(cc grpc.ClientConnInterface) LinksClient {
	return &linksClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *linksClient) Issue(ctx context.Context, in *IssueRequest, opts ...grpc.CallOption) (*IssueResponse, error) {
	return invoke[IssueResponse](ctx, c.cc, LinksIssueFullMethod, in, opts)
}

func (c *linksClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return invoke[ResolveResponse](ctx, c.cc, LinksResolveFullMethod, in, opts)
}

func (c *linksClient) VerifyAndResolve(ctx context.Context, in *VerifyAndResolveRequest, opts ...grpc.CallOption) (*VerifyAndResolveResponse, error) {
	return invoke[VerifyAndResolveResponse](ctx, c.cc, LinksVerifyAndResolveFullMethod, in, opts)
}

func (c *linksClient) ListLinks(ctx context.Context, in *ListLinksRequest, opts ...grpc.CallOption) (*ListLinksResponse, error) {
	return invoke[ListLinksResponse](ctx, c.cc, LinksListLinksFullMethod, in, opts)
}

func (c *linksClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, LinksPingFullMethod, in, opts)
}

func (c *linksClient) GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*GetStatsResponse, error) {
	return invoke[GetStatsResponse](ctx, c.cc, LinksGetStatsFullMethod, in, opts)
}
