package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// LedgerRange is where mirrored ledger rows are appended.
const LedgerRange = "Ledger!A:F"

const headerRange = "Ledger!A1:F1"

// LedgerHeader labels the mirrored columns.
var LedgerHeader = []interface{}{"Timestamp", "Batch ID", "Action", "Actor", "Details", "Status"}

// LedgerMirror copies every committed ledger event into a spreadsheet so
// non-technical stakeholders can follow batches without the API.
type LedgerMirror struct {
	repo   Repository
	logger *zap.Logger
}

// NewLedgerMirror wires a mirror on top of a sheet repository.
func NewLedgerMirror(repo Repository, logger *zap.Logger) *LedgerMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerMirror{repo: repo, logger: logger}
}

// EnsureHeader writes LedgerHeader when the ledger tab is still empty.
func (m *LedgerMirror) EnsureHeader(ctx context.Context) error {
	existing, err := m.repo.ReadRange(ctx, headerRange)
	if err != nil {
		return fmt.Errorf("read ledger header: %w", err)
	}
	if len(existing) > 0 && len(existing[0]) > 0 {
		return nil
	}
	if err := m.repo.AppendRows(ctx, LedgerRange, [][]interface{}{LedgerHeader}); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	m.logger.Info("ledger sheet header written")
	return nil
}

// BatchCreated mirrors the seed event of a new batch.
func (m *LedgerMirror) BatchCreated(ctx context.Context, batch models.Batch) error {
	seed, ok := batch.LatestEvent()
	if !ok {
		return nil
	}
	return m.write(ctx, batch, seed)
}

// EventAppended mirrors an appended event.
func (m *LedgerMirror) EventAppended(ctx context.Context, batch models.Batch, event models.Event, _ models.Status) error {
	return m.write(ctx, batch, event)
}

// ReadLedger returns the mirrored rows.
func (m *LedgerMirror) ReadLedger(ctx context.Context) ([][]interface{}, error) {
	return m.repo.ReadRange(ctx, LedgerRange)
}

func (m *LedgerMirror) write(ctx context.Context, batch models.Batch, event models.Event) error {
	status := event.Status
	if status == "" {
		status = batch.Status
	}

	row := []interface{}{
		event.Timestamp.UTC().Format(time.RFC3339),
		batch.BatchID,
		event.Action,
		event.Actor,
		event.Details,
		string(status),
	}

	if err := m.repo.AppendRows(ctx, LedgerRange, [][]interface{}{row}); err != nil {
		return fmt.Errorf("mirror event for %s: %w", batch.BatchID, err)
	}
	m.logger.Debug("ledger event mirrored", zap.String("batch_id", batch.BatchID), zap.String("action", event.Action))
	return nil
}
