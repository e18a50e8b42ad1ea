package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const linkColumns = "id, short_code, original, password_hash, clicks, owner_id, created_at"

var postgresQueries = queries{
	findByOriginal:  "SELECT " + linkColumns + " FROM links WHERE original = $1",
	findByCode:      "SELECT " + linkColumns + " FROM links WHERE short_code = $1",
	codeExists:      "SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)",
	insert:          "INSERT INTO links (id, short_code, original, password_hash, owner_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
	incrementClicks: "UPDATE links SET clicks = clicks + 1 WHERE id = $1",
	listByOwner:     "SELECT " + linkColumns + " FROM links WHERE owner_id = $1 ORDER BY created_at DESC",
	stats:           "SELECT COUNT(*), COUNT(DISTINCT owner_id), COALESCE(SUM(clicks), 0)::BIGINT FROM links",
}

// PostgresRepository реализует интерфейс Repository с использованием PostgreSQL
type PostgresRepository struct {
	sqlRepository
}

// NewPostgresRepository создаёт новый экземпляр PostgresRepository
func NewPostgresRepository(db Database, logger *zap.Logger) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New("database is not configured")
	}
	return &PostgresRepository{
		sqlRepository: sqlRepository{
			db:       db,
			logger:   logger,
			q:        postgresQueries,
			conflict: postgresConflict,
		},
	}, nil
}

// postgresConflict различает нарушения уникальности по имени ограничения
func postgresConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "original") {
		return ErrURLExists
	}
	return ErrCodeExists
}
