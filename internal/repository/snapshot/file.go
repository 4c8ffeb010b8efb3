package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// FileStore keeps the snapshot as a JSON file on local disk.
type FileStore struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore builds a file backed store rooted at path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("snapshot file path must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger, now: time.Now}, nil
}

// LoadAll reads and decodes the snapshot file. A missing file is an empty
// snapshot. An undecodable file is copied aside before the error is returned
// so that a later save cannot destroy it.
func (s *FileStore) LoadAll(ctx context.Context) (map[string]models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]models.Batch{}, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	batches, err := Decode(data)
	if err != nil {
		backup, werr := s.backupCorrupt(data)
		if werr != nil {
			s.logger.Error("failed to back up unreadable snapshot", zap.String("path", s.path), zap.Error(werr))
			return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
		}
		s.logger.Error("snapshot unreadable, copy preserved", zap.String("path", s.path), zap.String("backup", backup), zap.Error(err))
		return nil, fmt.Errorf("decode snapshot %s (backup at %s): %w", s.path, backup, err)
	}

	return batches, nil
}

// backupCorrupt copies data next to the snapshot unless an earlier backup
// already holds the same bytes, in which case that backup is returned.
func (s *FileStore) backupCorrupt(data []byte) (string, error) {
	existing, err := filepath.Glob(s.path + ".corrupt-*")
	if err != nil {
		return "", fmt.Errorf("list snapshot backups: %w", err)
	}
	for _, name := range existing {
		prev, err := os.ReadFile(name)
		if err == nil && bytes.Equal(prev, data) {
			return name, nil
		}
	}

	backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", err
	}
	return backup, nil
}

// SaveAll writes the snapshot to a temporary file and renames it over the
// previous one, so readers see either the old or the new snapshot.
func (s *FileStore) SaveAll(ctx context.Context, batches map[string]models.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(batches)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}

	s.logger.Debug("snapshot saved", zap.String("path", s.path), zap.Int("batches", len(batches)))
	return nil
}
