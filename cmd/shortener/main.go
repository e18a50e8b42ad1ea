package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempizhere/shortlink/internal/app"
	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/clicks"
	"github.com/tempizhere/shortlink/internal/config"
	"github.com/tempizhere/shortlink/internal/credentials"
	shortgrpc "github.com/tempizhere/shortlink/internal/grpc"
	"github.com/tempizhere/shortlink/internal/log"
	"github.com/tempizhere/shortlink/internal/middleware"
	"github.com/tempizhere/shortlink/internal/repository"
	"github.com/tempizhere/shortlink/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// tokenTTL срок жизни JWT, выпускаемых провайдером идентичности
const tokenTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("shortener: %v", err)
	}
}

func run() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	repo, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	subnet, err := middleware.ParseSubnet(cfg.TrustedSubnet)
	if err != nil {
		return err
	}

	acc := clicks.NewAccounter(repo, logger, clicks.Options{
		Workers:   cfg.ClickWorkers,
		QueueSize: cfg.ClickQueueSize,
		Timeout:   cfg.ClickTimeout,
	})
	acc.Start()

	svc := service.NewService(repo, credentials.NewBcryptGate(cfg.BcryptCost), acc, logger, service.Options{
		BaseURL:     cfg.BaseURL,
		CodeLength:  cfg.CodeLength,
		MaxAttempts: cfg.MaxAttempts,
	})
	tokens := auth.NewManager(cfg.JWTSecret, tokenTTL)
	pinger, _ := repo.(repository.Pinger)

	httpSrv := &http.Server{
		Addr:              cfg.RunAddr,
		Handler:           app.NewApp(svc, pinger, logger).Router(app.RouterOptions{Tokens: tokens, Subnet: subnet}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = shortgrpc.NewGRPCServer(shortgrpc.NewServer(svc, pinger, logger), logger,
			shortgrpc.ServerOptions{Tokens: tokens, Subnet: subnet, TrustRealIP: cfg.GRPCTrustRealIP})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("address", cfg.RunAddr), zap.String("base_url", cfg.BaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen gRPC: %w", err)
			}
			logger.Info("Starting gRPC server", zap.String("address", cfg.GRPCAddr))
			return grpcSrv.Serve(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()

	// Переходы, принятые до остановки серверов, дописываются в хранилище
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := acc.Close(drainCtx); err != nil {
		logger.Warn("Click queue not fully drained", zap.Error(err))
	}

	logger.Info("Server stopped")
	return serveErr
}
