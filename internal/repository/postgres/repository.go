package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	value JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

const upsertSnapshot = `
INSERT INTO snapshots (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// Repository stores the batch snapshot in a PostgreSQL key/value table.
type Repository struct {
	db     *sql.DB
	key    string
	logger *zap.Logger
}

var _ snapshot.Store = (*Repository)(nil)

// NewRepository connects to PostgreSQL and ensures the snapshot table exists.
func NewRepository(ctx context.Context, dsn, key string, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn must not be empty")
	}
	if strings.TrimSpace(key) == "" {
		key = snapshot.DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	logger.Info("postgres snapshot store ready", zap.String("key", key))
	return &Repository{db: db, key: key, logger: logger}, nil
}

// LoadAll reads the snapshot for the configured key.
func (r *Repository) LoadAll(ctx context.Context) (map[string]models.Batch, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = $1`, r.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]models.Batch{}, nil
		}
		return nil, fmt.Errorf("query snapshot %s: %w", r.key, err)
	}

	batches, err := snapshot.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", r.key, err)
	}
	return batches, nil
}

// SaveAll upserts the snapshot row.
func (r *Repository) SaveAll(ctx context.Context, batches map[string]models.Batch) error {
	data, err := snapshot.Encode(batches)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertSnapshot, r.key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", r.key, err)
	}

	r.logger.Debug("snapshot saved", zap.String("key", r.key), zap.Int("batches", len(batches)))
	return nil
}

// Close closes the connection pool.
func (r *Repository) Close(_ context.Context) error {
	return r.db.Close()
}
