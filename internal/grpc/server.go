// Package grpc содержит реализацию gRPC сервера для сервиса коротких ссылок
package grpc

import (
	"context"
	"errors"

	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/grpc/proto"
	"github.com/tempizhere/shortlink/internal/repository"
	"github.com/tempizhere/shortlink/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server реализует gRPC сервер для сервиса коротких ссылок
type Server struct {
	proto.UnimplementedLinksServer
	svc    *service.Service
	pinger repository.Pinger
	logger *zap.Logger
}

// NewServer создаёт новый gRPC сервер; pinger может быть nil
func NewServer(svc *service.Service, pinger repository.Pinger, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		pinger: pinger,
		logger: logger,
	}
}

// Issue выдаёт короткую ссылку
func (s *Server) Issue(ctx context.Context, req *proto.IssueRequest) (*proto.IssueResponse, error) {
	shortURL, err := s.svc.Issue(ctx, service.IssueRequest{
		URL:      req.URL,
		Password: req.Password,
		Owner:    auth.IdentityFromContext(ctx),
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.IssueResponse{ShortURL: shortURL}, nil
}

// Resolve разрешает короткий код
func (s *Server) Resolve(ctx context.Context, req *proto.ResolveRequest) (*proto.ResolveResponse, error) {
	res, err := s.svc.Resolve(ctx, req.ShortCode)
	if err != nil {
		return nil, s.mapError(err)
	}
	if res.Outcome == service.OutcomeRequiresPassword {
		return &proto.ResolveResponse{RequiresPassword: true}, nil
	}
	return &proto.ResolveResponse{OriginalURL: res.OriginalURL}, nil
}

// VerifyAndResolve открывает защищённую ссылку по паролю
func (s *Server) VerifyAndResolve(ctx context.Context, req *proto.VerifyAndResolveRequest) (*proto.VerifyAndResolveResponse, error) {
	original, err := s.svc.VerifyAndResolve(ctx, req.ShortCode, req.Password)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.VerifyAndResolveResponse{OriginalURL: original}, nil
}

// ListLinks возвращает ссылки аутентифицированного пользователя
func (s *Server) ListLinks(ctx context.Context, _ *proto.ListLinksRequest) (*proto.ListLinksResponse, error) {
	links, err := s.svc.ListOwned(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		return nil, s.mapError(err)
	}

	resp := &proto.ListLinksResponse{Links: make([]*proto.Link, 0, len(links))}
	for _, l := range links {
		resp.Links = append(resp.Links, &proto.Link{
			ID:        l.ID,
			Original:  l.Original,
			ShortCode: l.ShortCode,
			ShortURL:  s.svc.ShortURL(l.ShortCode),
			Protected: l.Protected(),
			Clicks:    l.Clicks,
			CreatedAt: l.CreatedAt,
		})
	}
	return resp, nil
}

// Ping проверяет доступность хранилища
func (s *Server) Ping(ctx context.Context, _ *proto.PingRequest) (*proto.PingResponse, error) {
	if s.pinger == nil {
		return &proto.PingResponse{StorageAvailable: true}, nil
	}
	err := s.pinger.PingContext(ctx)
	if err != nil {
		s.logger.Warn("Storage ping failed", zap.Error(err))
	}
	return &proto.PingResponse{StorageAvailable: err == nil}, nil
}

// GetStats возвращает статистику сервиса
func (s *Server) GetStats(ctx context.Context, _ *proto.GetStatsRequest) (*proto.GetStatsResponse, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.GetStatsResponse{
		Links:  int64(stats.Links),
		Users:  int64(stats.Users),
		Clicks: stats.Clicks,
	}, nil
}

// mapError преобразует ошибки бизнес-логики в gRPC статусы
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyURL):
		return status.Error(codes.InvalidArgument, "URL is required")
	case errors.Is(err, service.ErrInvalidURL):
		return status.Error(codes.InvalidArgument, "invalid URL")
	case errors.Is(err, service.ErrPasswordTooLong):
		return status.Error(codes.InvalidArgument, "password is too long")
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, "link not found")
	case errors.Is(err, service.ErrIncorrectPassword):
		return status.Error(codes.Unauthenticated, "incorrect password")
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "user not authenticated")
	default:
		s.logger.Error("Unexpected error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
