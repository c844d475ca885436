package recordsrv

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LadyMermelada/basketscore/internal/remote"
	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *Repository) {
	t.Helper()
	repo, err := OpenMemoryRepository()
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := httptest.NewServer(New(repo, testSecret, WithClock(func() time.Time { return fixedNow })))
	t.Cleanup(srv.Close)
	return srv, repo
}

func tokenFor(t *testing.T, user string) string {
	t.Helper()
	tok, _, err := IssueToken(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func clientFor(t *testing.T, srv *httptest.Server, user string) *remote.Client {
	t.Helper()
	return remote.New(srv.URL, "anon", remote.WithToken(tokenFor(t, user)))
}

// ============================================================
// Auth
// ============================================================

func TestHealthNeedsNoToken(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := remote.New(srv.URL, "").Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if id := resp.Header.Get("X-Request-Id"); len(id) != 36 {
		t.Fatalf("expected a uuid request id, got %q", id)
	}
}

func TestRejectsMissingAndBadTokens(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	if _, err := remote.New(srv.URL, "anon").Select(ctx, "u1"); !errors.Is(err, store.ErrTransport) {
		t.Fatalf("missing token: expected ErrTransport, got %v", err)
	}

	forged, _, _ := IssueToken("other-secret", "u1", time.Hour)
	if _, err := remote.New(srv.URL, "anon", remote.WithToken(forged)).Select(ctx, "u1"); !errors.Is(err, store.ErrTransport) {
		t.Fatalf("forged token: expected ErrTransport, got %v", err)
	}

	expired, _, _ := IssueToken(testSecret, "u1", -time.Minute)
	if _, err := remote.New(srv.URL, "anon", remote.WithToken(expired)).Select(ctx, "u1"); !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expired token: expected ErrTransport, got %v", err)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	if _, _, err := IssueToken("", "u1", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

// ============================================================
// Rows
// ============================================================

func TestRemoteStoreEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	rs := store.NewRemoteStore(clientFor(t, srv, "u1"), "u1", store.WithClock(func() time.Time { return fixedNow }))

	first, err := rs.Create(ctx, store.Draft{ZoneID: "Triple_Izq", Date: "2024-01-01", Total: 10, Made: 8})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ZoneLabel != "Three Left Wing" || first.Date != "2024-01-01" {
		t.Fatalf("unexpected session: %+v", first)
	}
	second, err := rs.Create(ctx, store.Draft{ZoneID: "Triple_Der", Date: "2024-01-15", Total: 10, Made: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, _ := rs.List(ctx)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if got := stats.AverageForWindow(list, 30, stats.Scope("3p"), fixedNow); got != 50 {
		t.Fatalf("AverageForWindow = %d, want 50", got)
	}

	made := 9
	updated, err := rs.Update(ctx, first.ID, store.Patch{Made: &made})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Made != 9 || updated.Total != 10 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := rs.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := rs.Delete(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete: expected ErrNotFound, got %v", err)
	}

	if err := rs.Import(ctx, []store.Session{
		{ZoneID: "TiroLibre", ZoneType: "tl", Date: "2024-01-10", Total: 5, Made: 5},
	}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	list, _ = rs.List(ctx)
	if len(list) != 1 || list[0].ZoneID != "TiroLibre" {
		t.Fatalf("import should replace everything: %+v", list)
	}
}

func TestRowsAreOwnerScoped(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	ana := clientFor(t, srv, "ana")
	bruno := clientFor(t, srv, "bruno")

	rows, err := ana.Insert(ctx, "ana", []store.NewRecord{{ZoneID: "TiroLibre", ZoneType: "tl", Made: 1, Total: 2, CreatedAt: "2024-01-02"}})
	if err != nil {
		t.Fatal(err)
	}
	id := rows[0].ID

	if _, err := bruno.Get(ctx, "bruno", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("other owner should not see the row, got %v", err)
	}
	if got, _ := bruno.Select(ctx, "ana"); len(got) != 0 {
		t.Fatalf("filtering by another user should match nothing, got %+v", got)
	}
	if n, _ := bruno.Delete(ctx, "bruno", id); n != 0 {
		t.Fatal("other owner should not delete the row")
	}
	if err := bruno.DeleteAll(ctx, "bruno"); err != nil {
		t.Fatal(err)
	}
	if got, _ := ana.Select(ctx, "ana"); len(got) != 1 {
		t.Fatal("ana's row should survive bruno's delete-all")
	}
}

func TestInsertForAnotherUserForbidden(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/rest/v1/shooting_sessions",
		strings.NewReader(`[{"user_id":"bruno","zone_id":"TiroLibre","made":1,"total":1,"created_at":"2024-01-01"}]`))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "ana"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 403: %s", resp.StatusCode, body)
	}
}

func TestInsertSingleObjectAndDefaultDate(t *testing.T) {
	srv, repo := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/rest/v1/shooting_sessions",
		strings.NewReader(`{"zone_id":"TiroLibre","zone_type":"tl","made":1,"total":1}`))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "ana"))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	rows, _ := repo.List(context.Background(), "ana", 0)
	if len(rows) != 1 || !strings.HasPrefix(rows[0].CreatedAt, "2024-01-20") {
		t.Fatalf("expected one row stamped today, got %+v", rows)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/rest/v1/shooting_sessions?id=gt.3", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "ana"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// ============================================================
// Leaderboard
// ============================================================

func TestLeaderboard(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	clientFor(t, srv, "ana").Insert(ctx, "ana", []store.NewRecord{
		{ZoneID: "Triple_Izq", ZoneType: "3p", Made: 4, Total: 10, CreatedAt: "2024-01-18"},
	})
	clientFor(t, srv, "bruno").Insert(ctx, "bruno", []store.NewRecord{
		{ZoneID: "Triple_Der", ZoneType: "3p", Made: 7, Total: 10, CreatedAt: "2024-01-19"},
		{ZoneID: "TiroLibre", ZoneType: "tl", Made: 9, Total: 10, CreatedAt: "2024-01-19"},
	})

	out, err := clientFor(t, srv, "ana").Leaderboard(ctx, stats.Category("3p"), 30)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(out) != 2 || out[0].Player != "bruno" || out[0].Value != 70 || out[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard: %+v", out)
	}

	sessions, err := clientFor(t, srv, "ana").Leaderboard(ctx, stats.CategorySessions, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].Player != "bruno" || sessions[0].Value != 2 {
		t.Fatalf("unexpected sessions leaderboard: %+v", sessions)
	}
}

func TestLeaderboardUnknownCategory(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := clientFor(t, srv, "ana").Leaderboard(context.Background(), stats.Category("dunks"), 30)
	if !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expected ErrTransport for a 400, got %v", err)
	}
}
