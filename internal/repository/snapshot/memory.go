package snapshot

import (
	"context"
	"sync"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// MemoryStore keeps the encoded snapshot in process memory. Every load decodes
// a fresh copy, so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	blob []byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFromBlob seeds the store with an already encoded snapshot.
func NewMemoryStoreFromBlob(blob []byte) *MemoryStore {
	return &MemoryStore{blob: append([]byte(nil), blob...)}
}

// LoadAll decodes the held snapshot.
func (s *MemoryStore) LoadAll(ctx context.Context) (map[string]models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Decode(s.blob)
}

// SaveAll encodes and replaces the held snapshot.
func (s *MemoryStore) SaveAll(ctx context.Context, batches map[string]models.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(batches)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = data
	return nil
}

// Raw returns a copy of the encoded snapshot.
func (s *MemoryStore) Raw() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.blob...)
}
