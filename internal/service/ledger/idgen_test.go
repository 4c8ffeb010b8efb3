package ledger

import (
	"regexp"
	"testing"
	"time"
)

var batchIDPattern = regexp.MustCompile(`^AGRI-[0-9A-Z]{16,}$`)

func TestNewBatchIDFormat(t *testing.T) {
	id, err := NewBatchID(time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewBatchID() error = %v", err)
	}
	if !batchIDPattern.MatchString(id) {
		t.Fatalf("NewBatchID() = %q does not match %s", id, batchIDPattern)
	}
}

func TestNewBatchIDUniqueInRapidSuccession(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	now := time.Now()

	for i := 0; i < n; i++ {
		id, err := NewBatchID(now)
		if err != nil {
			t.Fatalf("NewBatchID() error = %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}
