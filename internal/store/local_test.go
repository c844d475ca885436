package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

func newTestBlobs(t *testing.T) *SQLiteBlobs {
	t.Helper()
	b, err := OpenMemoryBlobs()
	if err != nil {
		t.Fatalf("open memory blobs: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func newTestLocal(t *testing.T) (*LocalStore, *SQLiteBlobs) {
	t.Helper()
	b := newTestBlobs(t)
	return NewLocalStore(b, WithClock(func() time.Time { return fixedNow })), b
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

// failingBlobs rejects every write, standing in for exhausted storage.
type failingBlobs struct{ BlobStore }

func (failingBlobs) Put(context.Context, string, string) error { return errors.New("quota exceeded") }

// ============================================================
// Blob store
// ============================================================

func TestBlobsGetMissing(t *testing.T) {
	b := newTestBlobs(t)
	_, ok, err := b.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing key should report ok=false")
	}
}

func TestBlobsPutOverwrite(t *testing.T) {
	ctx := context.Background()
	b := newTestBlobs(t)
	b.Put(ctx, "k", "v1")
	b.Put(ctx, "k", "v2")
	v, ok, _ := b.Get(ctx, "k")
	if !ok || v != "v2" {
		t.Fatalf("Get = %q, %v; want v2, true", v, ok)
	}
	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatal("key should be gone after Remove")
	}
}

func TestBlobsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "device.db")

	b, err := OpenBlobs(path)
	if err != nil {
		t.Fatalf("OpenBlobs: %v", err)
	}
	if err := b.Put(ctx, SessionsKey, "[]"); err != nil {
		t.Fatal(err)
	}
	b.Close()

	b, err = OpenBlobs(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if v, ok, err := b.Get(ctx, SessionsKey); err != nil || !ok || v != "[]" {
		t.Fatalf("Get = %q, %v, %v; want [], true, nil", v, ok, err)
	}
}

// ============================================================
// Local store
// ============================================================

func TestLocalListEmpty(t *testing.T) {
	l, _ := newTestLocal(t)
	sessions, err := l.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected empty list, got %d", len(sessions))
	}
}

func TestLocalCreate(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)

	s, err := l.Create(ctx, Draft{ZoneID: "Triple_Frontal", Date: "2024-01-15", Total: 10, Made: 4, Note: "cold gym"})
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != fixedNow.UnixMilli() {
		t.Fatalf("ID = %d, want timestamp-derived %d", s.ID, fixedNow.UnixMilli())
	}
	if s.ZoneType != "3p" || s.ZoneLabel != "Three Top" {
		t.Fatalf("zone snapshot not captured: %+v", s)
	}

	sessions, _ := l.List(ctx)
	if diff := cmp.Diff([]Session{s}, sessions); diff != "" {
		t.Fatalf("stored sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalCreateDefaultsDateToToday(t *testing.T) {
	l, _ := newTestLocal(t)
	s, err := l.Create(context.Background(), Draft{ZoneID: "TiroLibre", Total: 20, Made: 17})
	if err != nil {
		t.Fatal(err)
	}
	if s.Date != "2024-01-20" {
		t.Fatalf("Date = %q, want today", s.Date)
	}
}

func TestLocalCreateUniqueIDs(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)
	a, _ := l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 1, Made: 1})
	b, _ := l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 1, Made: 0})
	if a.ID == b.ID {
		t.Fatalf("ids collide: %d", a.ID)
	}
	if b.ID != a.ID+1 {
		t.Fatalf("second id = %d, want %d", b.ID, a.ID+1)
	}
}

func TestLocalCreateUnknownZone(t *testing.T) {
	l, _ := newTestLocal(t)
	s, err := l.Create(context.Background(), Draft{ZoneID: "Logo", Total: 3, Made: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.ZoneLabel != "Logo" || s.ZoneType != "2p" {
		t.Fatalf("unknown zone should fall back to raw label and 2p: %+v", s)
	}
}

func TestLocalCreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		draft Draft
	}{
		{"zero total", Draft{ZoneID: "TiroLibre", Total: 0, Made: 0}},
		{"made over total", Draft{ZoneID: "TiroLibre", Total: 5, Made: 6}},
		{"negative made", Draft{ZoneID: "TiroLibre", Total: 5, Made: -1}},
		{"empty zone", Draft{Total: 5, Made: 1}},
		{"bad date", Draft{ZoneID: "TiroLibre", Date: "15/01/2024", Total: 5, Made: 1}},
		{"long note", Draft{ZoneID: "TiroLibre", Total: 5, Made: 1, Note: "this note is definitely longer than fifty characters"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, b := newTestLocal(t)
			_, err := l.Create(ctx, tt.draft)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if _, ok, _ := b.Get(ctx, SessionsKey); ok {
				t.Fatal("nothing should be persisted on validation failure")
			}
		})
	}
}

func TestLocalUpdate(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)
	s, _ := l.Create(ctx, Draft{ZoneID: "Pintura_Alta", Date: "2024-01-10", Total: 10, Made: 5})

	updated, err := l.Update(ctx, s.ID, Patch{Made: intp(7), Note: strp("better")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Made != 7 || updated.Total != 10 || updated.Note != "better" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.ZoneID != s.ZoneID || updated.Date != s.Date {
		t.Fatal("zone and date should be untouched")
	}

	sessions, _ := l.List(ctx)
	if sessions[0].Made != 7 {
		t.Fatal("update not persisted")
	}
}

func TestLocalUpdateRevalidates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)
	s, _ := l.Create(ctx, Draft{ZoneID: "Pintura_Alta", Total: 10, Made: 5})

	_, err := l.Update(ctx, s.ID, Patch{Total: intp(4)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation when made > new total, got %v", err)
	}
	sessions, _ := l.List(ctx)
	if sessions[0].Total != 10 {
		t.Fatal("rejected update must not be persisted")
	}
}

func TestLocalUpdateNotFound(t *testing.T) {
	l, _ := newTestLocal(t)
	_, err := l.Update(context.Background(), 42, Patch{Made: intp(1)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalDeleteTwice(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)
	s, _ := l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 10, Made: 8})

	if err := l.Delete(ctx, s.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := l.Delete(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	sessions, _ := l.List(ctx)
	if len(sessions) != 0 {
		t.Fatal("session should be gone")
	}
}

func TestLocalImportReplaces(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocal(t)
	l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 10, Made: 8})

	imported := []Session{
		{ID: 1, ZoneID: "Triple_Izq", Date: "2023-12-01", Total: 10, Made: 3, ZoneType: "3p", ZoneLabel: "Three Left Wing"},
		// Invalid records pass through import untouched.
		{ID: 2, ZoneID: "Triple_Izq", Date: "2023-12-02", Total: 5, Made: 9, ZoneType: "3p", ZoneLabel: "Three Left Wing"},
	}
	if err := l.Import(ctx, imported); err != nil {
		t.Fatal(err)
	}
	sessions, _ := l.List(ctx)
	if diff := cmp.Diff(imported, sessions); diff != "" {
		t.Fatalf("import should fully replace (-want +got):\n%s", diff)
	}
}

func TestLocalCorruptBlobRecoversEmpty(t *testing.T) {
	ctx := context.Background()
	l, b := newTestLocal(t)
	b.Put(ctx, SessionsKey, "{not json")

	sessions, err := l.List(ctx)
	if err != nil {
		t.Fatalf("corrupt blob should not surface an error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatal("corrupt blob should read as empty")
	}

	if _, err := l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 2, Made: 1}); err != nil {
		t.Fatalf("create after corruption: %v", err)
	}
}

func TestLocalClear(t *testing.T) {
	ctx := context.Background()
	l, b := newTestLocal(t)
	l.Create(ctx, Draft{ZoneID: "TiroLibre", Total: 2, Made: 1})
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Get(ctx, SessionsKey); ok {
		t.Fatal("blob should be removed")
	}
}

func TestLocalStorageFailure(t *testing.T) {
	l := NewLocalStore(failingBlobs{newTestBlobs(t)})
	_, err := l.Create(context.Background(), Draft{ZoneID: "TiroLibre", Total: 2, Made: 1})
	if err == nil {
		t.Fatal("expected storage error")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("storage failure is not a validation error")
	}
}
