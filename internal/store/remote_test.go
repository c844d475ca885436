package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/store/storetest"
)

const owner = "user-1"

func newTestRemote(t *testing.T) (*store.RemoteStore, *storetest.Records) {
	t.Helper()
	recs := storetest.NewRecords()
	clock := func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) }
	return store.NewRemoteStore(recs, owner, store.WithClock(clock)), recs
}

func intp(v int) *int { return &v }

func TestRemoteCreateReloadsOrder(t *testing.T) {
	ctx := context.Background()
	r, recs := newTestRemote(t)

	if _, err := r.Create(ctx, store.Draft{ZoneID: "TiroLibre", Date: "2024-01-01", Total: 10, Made: 7}); err != nil {
		t.Fatal(err)
	}
	s, err := r.Create(ctx, store.Draft{ZoneID: "Triple_Izq", Date: "2024-01-10", Total: 10, Made: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == 0 {
		t.Fatal("remote store should assign the id")
	}
	if s.ZoneLabel != "Three Left Wing" {
		t.Fatalf("label should be derived from zone id, got %q", s.ZoneLabel)
	}

	sessions, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].Date != "2024-01-10" {
		t.Fatalf("expected newest first after reload, got %+v", sessions)
	}

	// insert is always followed by a select
	want := []string{"insert", "select", "insert", "select"}
	if diff := cmp.Diff(want, recs.Calls); diff != "" {
		t.Fatalf("call sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoteCreateValidation(t *testing.T) {
	r, recs := newTestRemote(t)
	_, err := r.Create(context.Background(), store.Draft{ZoneID: "TiroLibre", Total: 5, Made: 6})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(recs.Calls) != 0 {
		t.Fatalf("invalid draft must not reach the server, calls=%v", recs.Calls)
	}
}

func TestRemoteFailureLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	r, recs := newTestRemote(t)
	r.Create(ctx, store.Draft{ZoneID: "TiroLibre", Date: "2024-01-01", Total: 10, Made: 7})
	before, _ := r.List(ctx)

	recs.Err = errors.New("connection refused")
	_, err := r.Create(ctx, store.Draft{ZoneID: "TiroLibre", Date: "2024-01-02", Total: 10, Made: 7})
	if !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	after, err := r.List(ctx)
	if err != nil {
		t.Fatalf("cached list should still be served: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("snapshot changed after failure (-before +after):\n%s", diff)
	}
}

func TestRemoteRefreshFailure(t *testing.T) {
	r, recs := newTestRemote(t)
	recs.Err = errors.New("401")
	if _, err := r.Refresh(context.Background()); !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestRemoteUpdate(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRemote(t)
	s, _ := r.Create(ctx, store.Draft{ZoneID: "Pintura_Baja", Date: "2024-01-05", Total: 10, Made: 5})

	updated, err := r.Update(ctx, s.ID, store.Patch{Made: intp(9)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Made != 9 || updated.Total != 10 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	sessions, _ := r.List(ctx)
	if sessions[0].Made != 9 {
		t.Fatal("snapshot should be reloaded after update")
	}
}

func TestRemoteUpdateRevalidates(t *testing.T) {
	ctx := context.Background()
	r, recs := newTestRemote(t)
	s, _ := r.Create(ctx, store.Draft{ZoneID: "Pintura_Baja", Total: 10, Made: 5})

	_, err := r.Update(ctx, s.ID, store.Patch{Made: intp(11)})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if recs.Rows()[0].Made != 5 {
		t.Fatal("invalid patch must not reach the server")
	}
}

func TestRemoteUpdateNotFound(t *testing.T) {
	r, _ := newTestRemote(t)
	_, err := r.Update(context.Background(), 99, store.Patch{Made: intp(1)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteDeleteTwice(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRemote(t)
	s, _ := r.Create(ctx, store.Draft{ZoneID: "TiroLibre", Total: 10, Made: 7})

	if err := r.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, s.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRemoteScopedToOwner(t *testing.T) {
	ctx := context.Background()
	r, recs := newTestRemote(t)
	recs.Seed(store.NewRecord{UserID: "someone-else", ZoneID: "TiroLibre", ZoneType: "tl", Made: 1, Total: 1, CreatedAt: "2024-01-01"})

	sessions, _ := r.List(ctx)
	if len(sessions) != 0 {
		t.Fatal("other users' rows must not be visible")
	}
	if err := r.Delete(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleting another user's row should be not-found, got %v", err)
	}
}

func TestRemoteImportReplaces(t *testing.T) {
	ctx := context.Background()
	r, recs := newTestRemote(t)
	r.Create(ctx, store.Draft{ZoneID: "TiroLibre", Total: 10, Made: 7})
	recs.Seed(store.NewRecord{UserID: "other", ZoneID: "TiroLibre", ZoneType: "tl", Made: 1, Total: 1, CreatedAt: "2024-01-01"})

	imported := []store.Session{
		{ID: 100, ZoneID: "Triple_Izq", Date: "2023-12-01", Total: 10, Made: 3, ZoneType: "3p", ZoneLabel: "Three Left Wing"},
		{ID: 101, ZoneID: "TiroLibre", Date: "2023-12-03", Total: 10, Made: 8, ZoneType: "tl", ZoneLabel: "Free Throw"},
	}
	if err := r.Import(ctx, imported); err != nil {
		t.Fatal(err)
	}

	sessions, _ := r.List(ctx)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions after import, got %d", len(sessions))
	}
	if sessions[0].Date != "2023-12-03" || sessions[1].Date != "2023-12-01" {
		t.Fatalf("dates not preserved or order wrong: %+v", sessions)
	}
	if len(recs.Rows()) != 3 {
		t.Fatal("other owners' rows must survive an import")
	}
}
