package grpc

import (
	"context"
	"net"
	"time"

	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/grpc/proto"
	"github.com/tempizhere/shortlink/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// realIPKey ключ метаданных с адресом клиента за прокси
const realIPKey = "x-real-ip"

// AuthInterceptor добавляет в контекст идентичность из метаданных authorization.
// Невалидный или отсутствующий токен означает анонимный вызов.
func AuthInterceptor(parser middleware.TokenParser, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return handler(ctx, req)
		}
		token, ok := middleware.BearerToken(values[0])
		if !ok {
			return handler(ctx, req)
		}

		identity, err := parser.Parse(token)
		if err != nil {
			logger.Warn("Invalid JWT token", zap.String("method", info.FullMethod), zap.Error(err))
			return handler(ctx, req)
		}
		return handler(auth.WithIdentity(ctx, identity), req)
	}
}

// TrustedSubnetInterceptor ограничивает GetStats доверенной подсетью.
// x-real-ip учитывается только при trustRealIP, иначе проверяется адрес соединения.
func TrustedSubnetInterceptor(subnet *middleware.Subnet, trustRealIP bool, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod != proto.LinksGetStatsFullMethod {
			return handler(ctx, req)
		}

		clientIP := clientIPFromContext(ctx, trustRealIP)
		if !subnet.Allows(clientIP) {
			logger.Warn("Access denied from untrusted IP",
				zap.String("ip", clientIP),
				zap.String("trusted_subnet", subnet.String()))
			return nil, status.Error(codes.PermissionDenied, "access denied")
		}
		return handler(ctx, req)
	}
}

// clientIPFromContext возвращает адрес соединения; x-real-ip берётся только при trustRealIP
func clientIPFromContext(ctx context.Context, trustRealIP bool) string {
	if trustRealIP {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(realIPKey); len(values) > 0 && values[0] != "" {
				return values[0]
			}
		}
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if tcpAddr, ok := p.Addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// LoggingInterceptor создаёт интерцептор для логирования gRPC запросов
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		logger.Info("gRPC request",
			zap.String("method", info.FullMethod),
			zap.String("peer", clientIPFromContext(ctx, false)),
			zap.String("status_code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		return resp, err
	}
}

// ServerOptions зависимости интерцепторов gRPC сервера
type ServerOptions struct {
	Tokens middleware.TokenParser
	Subnet *middleware.Subnet

	// TrustRealIP включают, когда сервер стоит за прокси, выставляющим x-real-ip
	TrustRealIP bool
}

// NewGRPCServer собирает grpc.Server с интерцепторами и зарегистрированным сервисом
func NewGRPCServer(srv proto.LinksServer, logger *zap.Logger, opts ServerOptions) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(logger)}
	if opts.Tokens != nil {
		interceptors = append(interceptors, AuthInterceptor(opts.Tokens, logger))
	}
	interceptors = append(interceptors, TrustedSubnetInterceptor(opts.Subnet, opts.TrustRealIP, logger))

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	proto.RegisterLinksServer(s, srv)
	return s
}
