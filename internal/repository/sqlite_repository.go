package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteQueries = queries{
	findByOriginal:  "SELECT " + linkColumns + " FROM links WHERE original = ?",
	findByCode:      "SELECT " + linkColumns + " FROM links WHERE short_code = ?",
	codeExists:      "SELECT EXISTS (SELECT 1 FROM links WHERE short_code = ?)",
	insert:          "INSERT INTO links (id, short_code, original, password_hash, owner_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
	incrementClicks: "UPDATE links SET clicks = clicks + 1 WHERE id = ?",
	listByOwner:     "SELECT " + linkColumns + " FROM links WHERE owner_id = ? ORDER BY created_at DESC",
	stats:           "SELECT COUNT(*), COUNT(DISTINCT owner_id), COALESCE(SUM(clicks), 0) FROM links",
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id            TEXT PRIMARY KEY,
		short_code    TEXT NOT NULL UNIQUE,
		original      TEXT NOT NULL UNIQUE,
		password_hash TEXT,
		clicks        INTEGER NOT NULL DEFAULT 0,
		owner_id      TEXT,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS links_owner_id_idx ON links (owner_id)`,
}

// SQLiteRepository реализует интерфейс Repository поверх встраиваемой SQLite
type SQLiteRepository struct {
	sqlRepository
	conn *sql.DB
}

// NewSQLiteRepository открывает (или создаёт) базу SQLite по пути и применяет миграции
func NewSQLiteRepository(ctx context.Context, path string, logger *zap.Logger) (*SQLiteRepository, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite не любит параллельных писателей, а ":memory:" живёт в пределах одного соединения
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			logger.Warn("Failed to apply SQLite pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	for _, m := range sqliteMigrations {
		if _, err := conn.ExecContext(ctx, m); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &SQLiteRepository{
		sqlRepository: sqlRepository{
			db:       conn,
			logger:   logger,
			q:        sqliteQueries,
			conflict: sqliteConflict,
		},
		conn: conn,
	}, nil
}

// Close закрывает базу данных
func (r *SQLiteRepository) Close() error {
	return r.conn.Close()
}

// sqliteConflict распознаёт SQLITE_CONSTRAINT_UNIQUE и определяет столбец по тексту ошибки
func sqliteConflict(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return nil
	}
	if strings.Contains(sqliteErr.Error(), "links.original") {
		return ErrURLExists
	}
	return ErrCodeExists
}
