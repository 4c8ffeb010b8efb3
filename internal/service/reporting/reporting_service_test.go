package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

type stubSource struct {
	batches []models.Batch
}

func (s stubSource) ListBatches(context.Context) ([]models.Batch, error) {
	return s.batches, nil
}

func (s stubSource) GetFarmerBatches(_ context.Context, farmerID string) ([]models.Batch, error) {
	var out []models.Batch
	for _, b := range s.batches {
		if b.FarmerID == farmerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func fixture(now time.Time) []models.Batch {
	return []models.Batch{
		{
			BatchID: "AGRI-1", FarmerID: "farmer_001", Quantity: 150, Status: models.StatusHarvested,
			History: []models.Event{{Timestamp: now.Add(-2 * time.Hour), Action: "Harvested"}},
		},
		{
			BatchID: "AGRI-2", FarmerID: "farmer_001", Quantity: 50, Status: models.StatusSold,
			History: []models.Event{
				{Timestamp: now.Add(-72 * time.Hour), Action: "Harvested"},
				{Timestamp: now.Add(-30 * time.Minute), Action: "Sold to Consumer"},
			},
		},
		{
			BatchID: "AGRI-3", FarmerID: "farmer_002", Quantity: 20, Status: models.StatusInTransit,
			History: []models.Event{{Timestamp: now.Add(-48 * time.Hour), Action: "Harvested"}},
		},
	}
}

func TestFarmerStats(t *testing.T) {
	now := time.Date(2024, 8, 20, 20, 0, 0, 0, time.UTC)
	svc := NewService(stubSource{batches: fixture(now)}, nil)

	stats, err := svc.FarmerStats(context.Background(), "farmer_001")
	if err != nil {
		t.Fatalf("FarmerStats() error = %v", err)
	}

	if stats.TotalBatches != 2 || stats.ActiveBatches != 1 || stats.Updatable != 1 || stats.TotalQuantity != 200 {
		t.Fatalf("FarmerStats() = %+v", stats)
	}
	if stats.StatusCounts[models.StatusSold] != 1 || stats.StatusCounts[models.StatusInTransit] != 0 {
		t.Fatalf("StatusCounts = %v", stats.StatusCounts)
	}
}

func TestDailyDigest(t *testing.T) {
	now := time.Date(2024, 8, 20, 20, 0, 0, 0, time.UTC)
	svc := NewService(stubSource{batches: fixture(now)}, nil)

	digest, err := svc.DailyDigest(context.Background(), now)
	if err != nil {
		t.Fatalf("DailyDigest() error = %v", err)
	}

	if digest.TotalBatches != 3 || digest.ActiveBatches != 2 || digest.TotalQuantity != 220 {
		t.Fatalf("DailyDigest() = %+v", digest)
	}
	if digest.EventsRecorded != 2 {
		t.Fatalf("EventsRecorded = %d, want 2", digest.EventsRecorded)
	}
	for _, want := range []string{"2024-08-20", "3 batches", "- In Transit: 1", "2 events recorded"} {
		if !strings.Contains(digest.Text, want) {
			t.Fatalf("digest text missing %q:\n%s", want, digest.Text)
		}
	}
}

func TestDailyDigestEmptyLedger(t *testing.T) {
	svc := NewService(stubSource{}, nil)

	digest, err := svc.DailyDigest(context.Background(), time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyDigest() error = %v", err)
	}
	if !strings.Contains(digest.Text, "no batches registered yet") {
		t.Fatalf("digest text = %q", digest.Text)
	}
}
