package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/store/storetest"
)

func newTestLocal(t *testing.T) *store.LocalStore {
	t.Helper()
	b, err := store.OpenMemoryBlobs()
	if err != nil {
		t.Fatalf("open memory blobs: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	now := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	return store.NewLocalStore(b, store.WithClock(func() time.Time { return now }))
}

func seedLocal(t *testing.T, local *store.LocalStore) {
	t.Helper()
	ctx := context.Background()
	drafts := []store.Draft{
		{ZoneID: "TiroLibre", Date: "2024-01-02", Total: 10, Made: 8},
		{ZoneID: "Triple_Izq", Date: "2024-01-05", Total: 10, Made: 3, Note: "windy"},
		{ZoneID: "Pintura_Baja", Date: "2024-01-09", Total: 12, Made: 9},
	}
	for _, d := range drafts {
		if _, err := local.Create(ctx, d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestRunMigratesAndClears(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	seedLocal(t, local)
	remote := storetest.NewRecords()

	res, err := Run(ctx, local, remote, "user-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 3 {
		t.Fatalf("Migrated = %d, want 3", res.Migrated)
	}

	rows := remote.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 remote rows, got %d", len(rows))
	}
	dates := map[string]bool{}
	for _, r := range rows {
		if r.UserID != "user-1" {
			t.Fatalf("row owner = %q, want user-1", r.UserID)
		}
		dates[r.CreatedAt] = true
	}
	for _, d := range []string{"2024-01-02", "2024-01-05", "2024-01-09"} {
		if !dates[d] {
			t.Fatalf("original date %s not preserved: %+v", d, rows)
		}
	}

	left, _ := local.List(ctx)
	if len(left) != 0 {
		t.Fatalf("local should be empty after migration, has %d", len(left))
	}
}

func TestRunOneBulkInsert(t *testing.T) {
	local := newTestLocal(t)
	seedLocal(t, local)
	remote := storetest.NewRecords()

	if _, err := Run(context.Background(), local, remote, "user-1", nil); err != nil {
		t.Fatal(err)
	}
	if len(remote.Calls) != 1 || remote.Calls[0] != "insert" {
		t.Fatalf("expected a single insert call, got %v", remote.Calls)
	}
}

func TestRunEmptyIsNoop(t *testing.T) {
	local := newTestLocal(t)
	remote := storetest.NewRecords()

	res, err := Run(context.Background(), local, remote, "user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Migrated != 0 {
		t.Fatalf("Migrated = %d, want 0", res.Migrated)
	}
	if len(remote.Calls) != 0 {
		t.Fatalf("no remote calls expected, got %v", remote.Calls)
	}
}

func TestRunFailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	seedLocal(t, local)
	remote := storetest.NewRecords()
	remote.Err = errors.New("connection refused")

	_, err := Run(ctx, local, remote, "user-1", nil)
	if !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	left, _ := local.List(ctx)
	if len(left) != 3 {
		t.Fatalf("local sessions should survive a failed migration, have %d", len(left))
	}
}

func TestRunPartialInsertIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	seedLocal(t, local)
	remote := storetest.NewRecords()
	remote.FailInsertAfter = 2

	if _, err := Run(ctx, local, remote, "user-1", nil); err == nil {
		t.Fatal("expected error")
	}
	if n := len(remote.Rows()); n != 2 {
		t.Fatalf("expected the 2 accepted rows to stay remote, got %d", n)
	}
	left, _ := local.List(ctx)
	if len(left) != 3 {
		t.Fatalf("local sessions should survive, have %d", len(left))
	}
}
