package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

func TestNewMongoDBRepositoryRequiresURI(t *testing.T) {
	if _, err := NewMongoDBRepository(context.Background(), "", "agritrace", ""); err == nil {
		t.Fatalf("NewMongoDBRepository() expected error for empty uri")
	}
}

// TestRoundTrip runs against a live server when AGRITRACE_TEST_MONGODB_URI is set.
func TestRoundTrip(t *testing.T) {
	uri := os.Getenv("AGRITRACE_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("AGRITRACE_TEST_MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewMongoDBRepository(ctx, uri, "agritrace_test", "snapshot_"+t.Name())
	if err != nil {
		t.Fatalf("NewMongoDBRepository() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.client.Database(repo.dbName).Drop(context.Background())
		_ = repo.Close(context.Background())
	})

	batches := map[string]models.Batch{
		"AGRI-1": {
			BatchID: "AGRI-1", ProduceType: "Mangoes", Quantity: 12, Status: models.StatusHarvested,
			History: []models.Event{{Action: "Harvested", Actor: "Farmer"}},
		},
	}
	if err := repo.SaveAll(ctx, batches); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	got, err := repo.LoadAll(ctx)
	if err != nil || got["AGRI-1"].ProduceType != "Mangoes" {
		t.Fatalf("LoadAll() = %+v, %v", got, err)
	}

	digest := models.DailyDigest{Date: time.Now().UTC(), TotalBatches: 1, Text: "digest"}
	if err := repo.SaveDailyDigest(ctx, digest); err != nil {
		t.Fatalf("SaveDailyDigest() error = %v", err)
	}
}
