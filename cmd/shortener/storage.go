package main

import (
	"context"
	"fmt"

	"github.com/tempizhere/shortlink/internal/app"
	"github.com/tempizhere/shortlink/internal/config"
	"github.com/tempizhere/shortlink/internal/repository"
	"go.uber.org/zap"
)

// openStorage выбирает хранилище: PostgreSQL, SQLite, файл или память.
// При заданном адресе Redis хранилище оборачивается кэшем.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, func(), error) {
	var (
		repo    repository.Repository
		closers []func() error
	)

	switch {
	case cfg.DatabaseDSN != "":
		db, err := app.NewDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		pg, err := repository.NewPostgresRepository(db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		repo = pg
		closers = append(closers, db.Close)
		logger.Info("Using PostgreSQL storage")
	case cfg.SQLitePath != "":
		lite, err := repository.NewSQLiteRepository(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = lite
		closers = append(closers, lite.Close)
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
	case cfg.FileStoragePath != "":
		file, err := repository.NewFileRepository(cfg.FileStoragePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		repo = file
		closers = append(closers, file.Close)
		logger.Info("Using file storage", zap.String("path", cfg.FileStoragePath))
	default:
		repo = repository.NewMemoryRepository()
		logger.Info("Using in-memory storage")
	}

	if cfg.RedisAddr != "" {
		client, err := repository.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			closeAll(closers, logger)
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		repo = repository.NewCachedRepository(repo, client, cfg.CacheTTL, logger)
		closers = append([]func() error{client.Close}, closers...)
		logger.Info("Using Redis link cache", zap.Duration("ttl", cfg.CacheTTL))
	}

	return repo, func() { closeAll(closers, logger) }, nil
}

func closeAll(closers []func() error, logger *zap.Logger) {
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Warn("Failed to close storage", zap.Error(err))
		}
	}
}
