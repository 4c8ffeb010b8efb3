package seed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Ledger is the subset of the lifecycle engine the seeder drives.
type Ledger interface {
	IsEmpty(ctx context.Context) (bool, error)
	CreateBatch(ctx context.Context, farmerID string, form models.BatchForm) (models.Batch, error)
	AddEvent(ctx context.Context, batchID string, input models.EventInput) (bool, error)
}

// SampleForm is the demo batch registered on an empty ledger.
var SampleForm = models.BatchForm{
	ProduceType: "Tomatoes",
	Quantity:    150,
	HarvestDate: "2024-08-15",
	Location:    "Green Valley Farm, Odisha",
}

// SampleProgression is applied to the demo batch one step per delay.
var SampleProgression = []models.EventInput{
	{
		Action:  "Transferred to Distributor",
		Actor:   "Farmer",
		Details: "Batch transferred to ABC Distribution Center for quality inspection and packaging",
	},
	{
		Action:  "Dispatched for Delivery",
		Actor:   "Distributor",
		Details: "Quality check completed. Batch dispatched via refrigerated truck to retail locations",
	},
}

// Seeder populates an empty ledger with one sample batch and then walks it
// through SampleProgression in the background.
type Seeder struct {
	ledger   Ledger
	farmerID string
	delay    time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewSeeder builds a seeder that registers the sample batch for farmerID.
// delay separates consecutive progression events.
func NewSeeder(ledger Ledger, farmerID string, delay time.Duration, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{ledger: ledger, farmerID: farmerID, delay: delay, logger: logger}
}

// Run seeds the ledger when it is empty. It reports whether a batch was
// created. Progression events keep running until done or ctx is cancelled.
func (s *Seeder) Run(ctx context.Context) (models.Batch, bool, error) {
	empty, err := s.ledger.IsEmpty(ctx)
	if err != nil {
		return models.Batch{}, false, fmt.Errorf("check ledger: %w", err)
	}
	if !empty {
		s.logger.Debug("ledger already populated, skipping sample data")
		return models.Batch{}, false, nil
	}

	batch, err := s.ledger.CreateBatch(ctx, s.farmerID, SampleForm)
	if err != nil {
		return models.Batch{}, false, fmt.Errorf("create sample batch: %w", err)
	}
	s.logger.Info("sample batch created", zap.String("batch_id", batch.BatchID))

	s.wg.Add(1)
	go s.progress(ctx, batch.BatchID)

	return batch, true, nil
}

// Wait blocks until the background progression has finished.
func (s *Seeder) Wait() {
	s.wg.Wait()
}

func (s *Seeder) progress(ctx context.Context, batchID string) {
	defer s.wg.Done()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	for _, input := range SampleProgression {
		select {
		case <-ctx.Done():
			s.logger.Debug("sample progression cancelled", zap.String("batch_id", batchID))
			return
		case <-timer.C:
		}

		if _, err := s.ledger.AddEvent(ctx, batchID, input); err != nil {
			s.logger.Warn("sample event failed",
				zap.String("batch_id", batchID),
				zap.String("action", input.Action),
				zap.Error(err))
			return
		}
		timer.Reset(s.delay)
	}
}
