package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileRepository_ReplayAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage", "links.jsonl")

	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)

	link := newLink("id-1", "abc123", "https://example.com/a", "user-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	link.PasswordHash = "$2a$10$hash"
	_, err = repo.Create(ctx, link)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementClicks(ctx, "id-1"))
	require.NoError(t, repo.IncrementClicks(ctx, "id-1"))
	require.NoError(t, repo.Close())

	// Перезапуск: состояние восстанавливается из журнала
	reopened, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	restored, err := reopened.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", restored.Original)
	assert.Equal(t, "$2a$10$hash", restored.PasswordHash)
	assert.Equal(t, "user-1", restored.OwnerID)
	assert.Equal(t, int64(2), restored.Clicks)
}

func TestFileRepository_SkipsInvalidLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.jsonl")

	content := `{"op":"create","id":"id-1","short_code":"abc123","original":"https://example.com/a","created_at":"2025-01-01T00:00:00Z"}
{invalid json}
{"op":"rename","id":"id-1"}
{"op":"create","id":"id-2","short_code":"abc123","original":"https://example.com/b","created_at":"2025-01-01T00:00:00Z"}
{"op":"click","id":"id-1"}
{"op":"click","id":"missing"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()

	link, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", link.Original)
	assert.Equal(t, int64(1), link.Clicks)

	_, err = repo.FindByOriginal(ctx, "https://example.com/b")
	assert.ErrorIs(t, err, ErrNotFound, "conflicting entry must be skipped")
}

func TestFileRepository_Clear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.jsonl")

	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)
	_, err = repo.Create(ctx, newLink("id-1", "abc123", "https://example.com/a", "", time.Now().UTC()))
	require.NoError(t, err)

	repo.Clear()
	_, err = repo.FindByCode(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestFileRepository_ClosedJournal(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "links.jsonl"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.Create(ctx, newLink("id-1", "abc123", "https://example.com/a", "", time.Now().UTC()))
	assert.Error(t, err)

	_, err = repo.FindByCode(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound, "failed write must not reach memory")
}

func TestFileRepository_IncrementClicksJournalFirst(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "links.jsonl"), zap.NewNop())
	require.NoError(t, err)

	_, err = repo.Create(ctx, newLink("id-1", "abc123", "https://example.com/a", "", time.Now().UTC()))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.IncrementClicks(ctx, "missing"), ErrNotFound)

	require.NoError(t, repo.Close())
	assert.Error(t, repo.IncrementClicks(ctx, "id-1"))

	stored, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Clicks, "click not written to journal must not be counted")
}
