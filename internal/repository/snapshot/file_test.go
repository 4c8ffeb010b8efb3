package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "snapshot.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	got, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("LoadAll() = %v, want empty", got)
	}
}

func TestFileStoreRoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := store.SaveAll(ctx, sampleBatches()); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if err := store.SaveAll(ctx, loaded); err != nil {
		t.Fatalf("SaveAll(LoadAll()) error = %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("snapshot changed after SaveAll(LoadAll())")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestFileStoreBacksUpCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	store.now = func() time.Time { return time.Unix(1723700000, 0) }

	_, err = store.LoadAll(ctx)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("LoadAll() error = %v, want ErrCorruptSnapshot", err)
	}
	if !strings.Contains(err.Error(), "corrupt-1723700000") {
		t.Fatalf("LoadAll() error should name the backup: %v", err)
	}

	backup, err := os.ReadFile(path + ".corrupt-1723700000")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != "{broken" {
		t.Fatalf("backup = %q", backup)
	}

	original, err := os.ReadFile(path)
	if err != nil || string(original) != "{broken" {
		t.Fatalf("corrupt snapshot must be left in place, got %q, %v", original, err)
	}
}

func TestFileStoreReusesMatchingBackup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	for i, ts := range []int64{1723700000, 1723700060, 1723700120} {
		store.now = func() time.Time { return time.Unix(ts, 0) }
		_, err := store.LoadAll(ctx)
		if !errors.Is(err, ErrCorruptSnapshot) {
			t.Fatalf("LoadAll() #%d error = %v", i, err)
		}
		if !strings.Contains(err.Error(), "corrupt-1723700000") {
			t.Fatalf("LoadAll() #%d should name the first backup: %v", i, err)
		}
	}

	backups, err := filepath.Glob(path + ".corrupt-*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("backups = %v, want exactly one", backups)
	}

	// Different broken content gets its own copy.
	if err := os.WriteFile(path, []byte("[also broken"), 0o600); err != nil {
		t.Fatalf("rewrite corrupt file: %v", err)
	}
	store.now = func() time.Time { return time.Unix(1723700300, 0) }
	if _, err := store.LoadAll(ctx); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if backups, _ = filepath.Glob(path + ".corrupt-*"); len(backups) != 2 {
		t.Fatalf("backups = %v, want two", backups)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore("", nil); err == nil {
		t.Fatalf("NewFileStore() expected error for empty path")
	}
}
