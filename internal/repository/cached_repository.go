package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

const (
	codeKeyPrefix     = "shortlink:code:"
	originalKeyPrefix = "shortlink:original:"
)

// cachedLink представление ссылки в Redis, включая хеш пароля
type cachedLink struct {
	ID           string    `json:"id"`
	ShortCode    string    `json:"short_code"`
	Original     string    `json:"original"`
	PasswordHash string    `json:"password_hash,omitempty"`
	OwnerID      string    `json:"owner_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CachedRepository кеширует поиск ссылок в Redis; запись и счётчики всегда идут в основное хранилище.
// Счётчик переходов в кеше не хранится: у найденной через кеш ссылки Clicks равен нулю.
type CachedRepository struct {
	Repository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewCachedRepository оборачивает хранилище кешем Redis
func NewCachedRepository(repo Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	return &CachedRepository{
		Repository: repo,
		client:     client,
		ttl:        ttl,
		logger:     logger,
	}
}

// FindByCode ищет ссылку сначала в кеше, затем в хранилище
func (r *CachedRepository) FindByCode(ctx context.Context, code string) (models.Link, error) {
	return r.lookup(ctx, codeKeyPrefix+code, func() (models.Link, error) {
		return r.Repository.FindByCode(ctx, code)
	})
}

// FindByOriginal ищет ссылку по исходному URL сначала в кеше, затем в хранилище
func (r *CachedRepository) FindByOriginal(ctx context.Context, original string) (models.Link, error) {
	return r.lookup(ctx, originalKeyPrefix+original, func() (models.Link, error) {
		return r.Repository.FindByOriginal(ctx, original)
	})
}

// Create сохраняет ссылку и сразу прогревает кеш
func (r *CachedRepository) Create(ctx context.Context, link models.Link) (models.Link, error) {
	created, err := r.Repository.Create(ctx, link)
	if err != nil {
		return models.Link{}, err
	}
	r.store(ctx, created)
	return created, nil
}

// PingContext проверяет Redis и основное хранилище
func (r *CachedRepository) PingContext(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	if p, ok := r.Repository.(Pinger); ok {
		return p.PingContext(ctx)
	}
	return nil
}

func (r *CachedRepository) lookup(ctx context.Context, key string, load func() (models.Link, error)) (models.Link, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedLink
		if err := json.Unmarshal(data, &cached); err == nil {
			return models.Link{
				ID:           cached.ID,
				ShortCode:    cached.ShortCode,
				Original:     cached.Original,
				PasswordHash: cached.PasswordHash,
				OwnerID:      cached.OwnerID,
				CreatedAt:    cached.CreatedAt,
			}, nil
		}
		r.logger.Warn("Dropping malformed cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("Redis lookup failed, falling back to store", zap.String("key", key), zap.Error(err))
	}

	link, err := load()
	if err != nil {
		return models.Link{}, err
	}
	r.store(ctx, link)
	return link, nil
}

func (r *CachedRepository) store(ctx context.Context, link models.Link) {
	data, err := json.Marshal(cachedLink{
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		Original:     link.Original,
		PasswordHash: link.PasswordHash,
		OwnerID:      link.OwnerID,
		CreatedAt:    link.CreatedAt,
	})
	if err != nil {
		return
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, codeKeyPrefix+link.ShortCode, data, r.ttl)
	pipe.Set(ctx, originalKeyPrefix+link.Original, data, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("Failed to cache link", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
}
