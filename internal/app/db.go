package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/tempizhere/shortlink/internal/repository"
)

// ErrEmptyDSN возвращается при попытке подключиться без DSN
var ErrEmptyDSN = errors.New("empty database DSN")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id            TEXT PRIMARY KEY,
		short_code    VARCHAR(64) NOT NULL,
		original      TEXT NOT NULL,
		password_hash TEXT,
		clicks        BIGINT NOT NULL DEFAULT 0,
		owner_id      TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT links_short_code_key UNIQUE (short_code),
		CONSTRAINT links_original_key UNIQUE (original)
	)`,
	`CREATE INDEX IF NOT EXISTS links_owner_id_idx ON links (owner_id)`,
}

// NewDB открывает подключение к PostgreSQL через pgx и создаёт схему
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate создаёт таблицу links и индексы, если их нет
func Migrate(ctx context.Context, db repository.Database) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
