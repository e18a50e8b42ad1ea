package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

// queries содержит SQL-запросы хранилища в синтаксисе конкретной СУБД
type queries struct {
	findByOriginal  string
	findByCode      string
	codeExists      string
	insert          string
	incrementClicks string
	listByOwner     string
	stats           string
}

// sqlRepository общая реализация Repository поверх database/sql
type sqlRepository struct {
	db     Database
	logger *zap.Logger
	q      queries
	// conflict преобразует ошибку нарушения уникальности в ErrCodeExists или ErrURLExists
	conflict func(err error) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (models.Link, error) {
	var (
		link         models.Link
		passwordHash sql.NullString
		ownerID      sql.NullString
	)
	err := row.Scan(&link.ID, &link.ShortCode, &link.Original, &passwordHash, &link.Clicks, &ownerID, &link.CreatedAt)
	if err != nil {
		return models.Link{}, err
	}
	link.PasswordHash = passwordHash.String
	link.OwnerID = ownerID.String
	link.CreatedAt = link.CreatedAt.UTC()
	return link, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *sqlRepository) findOne(ctx context.Context, query, arg string) (models.Link, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Link{}, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get link from database", zap.String("key", arg), zap.Error(err))
		return models.Link{}, fmt.Errorf("select link: %w", err)
	}
	return link, nil
}

// FindByOriginal возвращает ссылку по исходному URL
func (r *sqlRepository) FindByOriginal(ctx context.Context, original string) (models.Link, error) {
	return r.findOne(ctx, r.q.findByOriginal, original)
}

// FindByCode возвращает ссылку по короткому коду
func (r *sqlRepository) FindByCode(ctx context.Context, code string) (models.Link, error) {
	return r.findOne(ctx, r.q.findByCode, code)
}

// CodeExists проверяет, занят ли код
func (r *sqlRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, r.q.codeExists, code).Scan(&exists); err != nil {
		r.logger.Error("Failed to check short code", zap.String("short_code", code), zap.Error(err))
		return false, fmt.Errorf("check short code: %w", err)
	}
	return exists, nil
}

// Create сохраняет новую ссылку
func (r *sqlRepository) Create(ctx context.Context, link models.Link) (models.Link, error) {
	_, err := r.db.ExecContext(ctx, r.q.insert,
		link.ID,
		link.ShortCode,
		link.Original,
		nullString(link.PasswordHash),
		nullString(link.OwnerID),
		link.CreatedAt.UTC(),
	)
	if err != nil {
		if conflictErr := r.conflict(err); conflictErr != nil {
			return models.Link{}, conflictErr
		}
		r.logger.Error("Failed to save link to database", zap.String("short_code", link.ShortCode), zap.Error(err))
		return models.Link{}, fmt.Errorf("insert link: %w", err)
	}
	return link, nil
}

// IncrementClicks атомарно увеличивает счётчик на стороне базы данных
func (r *sqlRepository) IncrementClicks(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q.incrementClicks, id)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner возвращает ссылки пользователя
func (r *sqlRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listByOwner, ownerID)
	if err != nil {
		r.logger.Error("Failed to list links", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Stats возвращает агрегированную статистику
func (r *sqlRepository) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	if err := r.db.QueryRowContext(ctx, r.q.stats).Scan(&stats.Links, &stats.Users, &stats.Clicks); err != nil {
		r.logger.Error("Failed to get stats", zap.Error(err))
		return models.Stats{}, fmt.Errorf("select stats: %w", err)
	}
	return stats, nil
}

// PingContext проверяет соединение с базой данных
func (r *sqlRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
