package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr, client := newTestRedis(t)
	link := newLink("id-1", "abc123", "https://example.com", "user-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	link.PasswordHash = "$2a$10$hash"

	underlying := NewMockRepository(ctrl)
	// Второй поиск должен обслуживаться кешем
	underlying.EXPECT().FindByCode(gomock.Any(), "abc123").Return(link, nil).Times(1)

	repo := NewCachedRepository(underlying, client, time.Minute, zap.NewNop())

	first, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	second, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)

	assert.Equal(t, first.Original, second.Original)
	assert.Equal(t, "$2a$10$hash", second.PasswordHash)
	assert.Equal(t, "user-1", second.OwnerID)
	assert.True(t, mr.Exists(codeKeyPrefix+"abc123"))
	assert.True(t, mr.Exists(originalKeyPrefix+"https://example.com"))

	// Поиск по URL тоже берётся из кеша, прогретого предыдущим запросом
	byOriginal, err := repo.FindByOriginal(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", byOriginal.ShortCode)
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr, client := newTestRedis(t)
	underlying := NewMockRepository(ctrl)
	underlying.EXPECT().FindByOriginal(gomock.Any(), "https://example.com").Return(newLink("", "", "", "", time.Time{}), ErrNotFound).Times(2)

	repo := NewCachedRepository(underlying, client, time.Minute, zap.NewNop())

	_, err := repo.FindByOriginal(ctx, "https://example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByOriginal(ctx, "https://example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mr.Keys())
}

func TestCachedRepository_CreateWarmsCacheAndIncrementPassesThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	memory := NewMemoryRepository()
	repo := NewCachedRepository(memory, client, time.Minute, zap.NewNop())

	_, err := repo.Create(ctx, newLink("id-1", "abc123", "https://example.com", "", time.Now().UTC()))
	require.NoError(t, err)
	assert.True(t, mr.Exists(codeKeyPrefix+"abc123"))
	ttl := mr.TTL(codeKeyPrefix + "abc123")
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, repo.IncrementClicks(ctx, "id-1"))
	stored, err := memory.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)

	_, err = repo.Create(ctx, newLink("id-2", "def456", "https://example.com", "", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrURLExists)
	assert.False(t, mr.Exists(codeKeyPrefix+"def456"))
}

func TestCachedRepository_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	memory := NewMemoryRepository()
	_, err := memory.Create(ctx, newLink("id-1", "abc123", "https://example.com", "", time.Now().UTC()))
	require.NoError(t, err)

	repo := NewCachedRepository(memory, client, time.Minute, zap.NewNop())
	mr.Close()

	// Сбой Redis не мешает поиску в основном хранилище
	link, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.Original)
	assert.Error(t, repo.PingContext(ctx))
}

func TestCachedRepository_MalformedEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	memory := NewMemoryRepository()
	_, err := memory.Create(ctx, newLink("id-1", "abc123", "https://example.com", "", time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, mr.Set(codeKeyPrefix+"abc123", "{not json"))

	repo := NewCachedRepository(memory, client, time.Minute, zap.NewNop())
	link, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "id-1", link.ID)
}
