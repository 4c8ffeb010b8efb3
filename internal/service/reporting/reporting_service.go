package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

const (
	dateLayout   = "2006-01-02"
	digestWindow = 24 * time.Hour
)

// BatchSource is the read side of the ledger the reports are computed from.
type BatchSource interface {
	ListBatches(ctx context.Context) ([]models.Batch, error)
	GetFarmerBatches(ctx context.Context, farmerID string) ([]models.Batch, error)
}

// Service exposes dashboard counters and the daily ledger digest.
type Service struct {
	source BatchSource
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(source BatchSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger}
}

// FarmerStats aggregates the dashboard counters for one farmer.
func (s *Service) FarmerStats(ctx context.Context, farmerID string) (models.FarmerStats, error) {
	batches, err := s.source.GetFarmerBatches(ctx, farmerID)
	if err != nil {
		return models.FarmerStats{}, fmt.Errorf("load farmer batches: %w", err)
	}

	stats := models.FarmerStats{
		FarmerID:     farmerID,
		StatusCounts: emptyStatusCounts(),
	}
	for _, batch := range batches {
		stats.TotalBatches++
		stats.TotalQuantity += batch.Quantity
		stats.StatusCounts[batch.Status]++
		if batch.Status != models.StatusSold {
			stats.ActiveBatches++
		}
		if models.CanUpdate(batch) {
			stats.Updatable++
		}
	}

	return stats, nil
}

// DailyDigest summarizes every batch and the events recorded in the 24 hours
// before now.
func (s *Service) DailyDigest(ctx context.Context, now time.Time) (models.DailyDigest, error) {
	batches, err := s.source.ListBatches(ctx)
	if err != nil {
		return models.DailyDigest{}, fmt.Errorf("load batches: %w", err)
	}

	now = now.UTC()
	since := now.Add(-digestWindow)
	digest := models.DailyDigest{
		Date:         now,
		StatusCounts: emptyStatusCounts(),
		CreatedAt:    now,
	}

	for _, batch := range batches {
		digest.TotalBatches++
		digest.TotalQuantity += batch.Quantity
		digest.StatusCounts[batch.Status]++
		if batch.Status != models.StatusSold {
			digest.ActiveBatches++
		}

		for _, event := range batch.History {
			if event.Timestamp.After(since) && !event.Timestamp.After(now) {
				digest.EventsRecorded++
			}
		}
	}

	digest.Text = formatDigest(digest)
	s.logger.Debug("daily digest computed",
		zap.Int("batches", digest.TotalBatches),
		zap.Int("events", digest.EventsRecorded))

	return digest, nil
}

func formatDigest(d models.DailyDigest) string {
	if d.TotalBatches == 0 {
		return fmt.Sprintf("AgriTrace digest (%s): no batches registered yet.", d.Date.Format(dateLayout))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "AgriTrace digest (%s): %d batches, %d active, %d kg tracked.",
		d.Date.Format(dateLayout), d.TotalBatches, d.ActiveBatches, d.TotalQuantity)
	for _, status := range models.Statuses {
		fmt.Fprintf(&b, "\n- %s: %d", status, d.StatusCounts[status])
	}
	fmt.Fprintf(&b, "\n%d events recorded in the last 24h.", d.EventsRecorded)
	return b.String()
}

func emptyStatusCounts() map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}
	return counts
}
