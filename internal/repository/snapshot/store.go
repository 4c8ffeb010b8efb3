package snapshot

import (
	"context"
	"errors"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// DefaultKey is the storage key the batch snapshot lives under.
const DefaultKey = "agri_blockchain_data"

var (
	// ErrCorruptSnapshot indicates the persisted blob could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrUnsupportedVersion indicates the blob was written by a newer schema.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Store persists the complete batch mapping as a single snapshot.
type Store interface {
	// LoadAll returns the current snapshot, or an empty map when none exists.
	LoadAll(ctx context.Context) (map[string]models.Batch, error)
	// SaveAll replaces the stored snapshot with batches in one step.
	SaveAll(ctx context.Context, batches map[string]models.Batch) error
}

// Closer is implemented by stores holding external connections.
type Closer interface {
	Close(ctx context.Context) error
}
