package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	repo, err := New(context.Background(), db, "", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func batchFixture(id string) models.Batch {
	now := time.Date(2024, 8, 15, 8, 0, 0, 0, time.UTC)
	return models.Batch{
		BatchID:     id,
		ProduceType: "Rice",
		Quantity:    40,
		HarvestDate: "2024-08-15",
		Location:    "Puri",
		FarmerID:    "farmer_001",
		Status:      models.StatusHarvested,
		History:     []models.Event{{Timestamp: now, Action: "Harvested", Actor: "Farmer", Details: "40kg of Rice harvested at Puri"}},
		CreatedAt:   now,
	}
}

func TestRepositorySaveLoad(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	empty, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("LoadAll() on fresh db = %v", empty)
	}

	if err := repo.SaveAll(ctx, map[string]models.Batch{"AGRI-1": batchFixture("AGRI-1")}); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if err := repo.SaveAll(ctx, map[string]models.Batch{
		"AGRI-1": batchFixture("AGRI-1"),
		"AGRI-2": batchFixture("AGRI-2"),
	}); err != nil {
		t.Fatalf("SaveAll(update) error = %v", err)
	}

	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadAll() returned %d batches, want 2", len(got))
	}
	if got["AGRI-2"].Location != "Puri" {
		t.Fatalf("LoadAll() batch = %+v", got["AGRI-2"])
	}

	var rows int64
	if err := repo.db.Model(&SnapshotRow{}).Count(&rows).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("snapshot table has %d rows, want 1", rows)
	}
}

func TestRepositoryCorruptRow(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	if err := repo.db.Create(&SnapshotRow{Key: snapshot.DefaultKey, Value: "not-json", UpdatedAt: "x"}).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	_, err := repo.LoadAll(ctx)
	if !errors.Is(err, snapshot.ErrCorruptSnapshot) {
		t.Fatalf("LoadAll() error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "agritrace.db")
	repo, err := Open(context.Background(), dsn, "custom", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = repo.Close(context.Background()) }()

	if repo.key != "custom" {
		t.Fatalf("key = %q", repo.key)
	}
}
