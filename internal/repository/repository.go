// Package repository содержит хранилища коротких ссылок: in-memory, файловое,
// PostgreSQL, SQLite и кеширующую обёртку на Redis.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tempizhere/shortlink/internal/models"
)

var (
	// ErrNotFound возвращается, если ссылка не найдена
	ErrNotFound = errors.New("link not found")
	// ErrCodeExists возвращается при попытке сохранить уже занятый короткий код
	ErrCodeExists = errors.New("short code already exists")
	// ErrURLExists возвращается при попытке сохранить уже сокращённый URL
	ErrURLExists = errors.New("URL already exists")
)

// Repository определяет интерфейс хранилища ссылок
type Repository interface {
	// FindByOriginal возвращает ссылку по точному совпадению исходного URL
	FindByOriginal(ctx context.Context, original string) (models.Link, error)
	// FindByCode возвращает ссылку по короткому коду
	FindByCode(ctx context.Context, code string) (models.Link, error)
	// CodeExists проверяет, занят ли короткий код
	CodeExists(ctx context.Context, code string) (bool, error)
	// Create сохраняет новую ссылку; ErrCodeExists или ErrURLExists при нарушении уникальности
	Create(ctx context.Context, link models.Link) (models.Link, error)
	// IncrementClicks атомарно увеличивает счётчик переходов на единицу
	IncrementClicks(ctx context.Context, id string) error
	// ListByOwner возвращает ссылки пользователя, новые первыми
	ListByOwner(ctx context.Context, ownerID string) ([]models.Link, error)
	// Stats возвращает агрегированную статистику хранилища
	Stats(ctx context.Context) (models.Stats, error)
}

// Pinger проверяет доступность хранилища
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Database определяет интерфейс для работы с базой данных
type Database interface {
	Pinger
	// Close закрывает соединение с базой данных
	Close() error
	// ExecContext выполняет SQL-команду без возврата результатов
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	// QueryContext выполняет SQL-запрос и возвращает результаты
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	// QueryRowContext выполняет SQL-запрос и возвращает одну строку результата
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
