package ledger

import (
	"context"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Listener observes committed ledger changes. Errors are logged by the
// service and never undo the change.
type Listener interface {
	BatchCreated(ctx context.Context, batch models.Batch) error
	EventAppended(ctx context.Context, batch models.Batch, event models.Event, previous models.Status) error
}
