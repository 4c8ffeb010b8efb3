package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
)

// SnapshotRow is the single key/value row holding an encoded snapshot.
type SnapshotRow struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

// TableName pins the gorm table name.
func (SnapshotRow) TableName() string {
	return "snapshots"
}

// Repository stores the batch snapshot in SQLite through gorm.
type Repository struct {
	db     *gorm.DB
	key    string
	logger *zap.Logger
}

var _ snapshot.Store = (*Repository)(nil)

// Open opens (or creates) the SQLite database at dsn and migrates the snapshot table.
func Open(ctx context.Context, dsn, key string, logger *zap.Logger) (*Repository, error) {
	if err := ensureDirectory(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	return New(ctx, db, key, logger)
}

// New wraps an existing gorm handle.
func New(ctx context.Context, db *gorm.DB, key string, logger *zap.Logger) (*Repository, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if strings.TrimSpace(key) == "" {
		key = snapshot.DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.WithContext(ctx).AutoMigrate(&SnapshotRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate snapshots: %w", err)
	}

	return &Repository{db: db, key: key, logger: logger}, nil
}

// LoadAll reads the snapshot row for the configured key.
func (r *Repository) LoadAll(ctx context.Context) (map[string]models.Batch, error) {
	var row SnapshotRow
	if err := r.db.WithContext(ctx).Where("key = ?", r.key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]models.Batch{}, nil
		}
		return nil, fmt.Errorf("query snapshot %s: %w", r.key, err)
	}

	batches, err := snapshot.Decode([]byte(row.Value))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", r.key, err)
	}
	return batches, nil
}

// SaveAll upserts the snapshot row in a single statement.
func (r *Repository) SaveAll(ctx context.Context, batches map[string]models.Batch) error {
	data, err := snapshot.Encode(batches)
	if err != nil {
		return err
	}

	row := SnapshotRow{
		Key:       r.key,
		Value:     string(data),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", r.key, err)
	}

	r.logger.Debug("snapshot saved", zap.String("key", r.key), zap.Int("batches", len(batches)))
	return nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close(_ context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	return sqlDB.Close()
}

func ensureDirectory(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}

	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}
