package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// SchemaVersion is the version tag written into every snapshot blob.
const SchemaVersion = 1

type envelope struct {
	Version int                     `json:"version"`
	Batches map[string]models.Batch `json:"batches"`
}

// Encode serializes batches into a versioned snapshot blob. Map keys are
// emitted in sorted order so identical snapshots encode to identical bytes.
func Encode(batches map[string]models.Batch) ([]byte, error) {
	if batches == nil {
		batches = map[string]models.Batch{}
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Batches: batches})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot blob. An empty blob decodes to an empty map. Blobs
// without a version tag are read as the legacy bare batch mapping.
func Decode(data []byte) (map[string]models.Batch, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]models.Batch{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var batches map[string]models.Batch
	if _, versioned := fields["version"]; versioned {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		if env.Version > SchemaVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		batches = env.Batches
	} else if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if batches == nil {
		batches = map[string]models.Batch{}
	}

	for key, batch := range batches {
		if batch.BatchID != key {
			return nil, fmt.Errorf("%w: batch keyed %q carries id %q", ErrCorruptSnapshot, key, batch.BatchID)
		}
		if len(batch.History) == 0 {
			return nil, fmt.Errorf("%w: batch %q has no history", ErrCorruptSnapshot, key)
		}
	}

	return batches, nil
}
