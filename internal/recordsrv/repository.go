package recordsrv

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LadyMermelada/basketscore/internal/db"
	"github.com/LadyMermelada/basketscore/internal/store"
)

var schema = db.Schema{`
	CREATE TABLE IF NOT EXISTS records (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		zone_id     TEXT NOT NULL,
		zone_type   TEXT NOT NULL DEFAULT '',
		made        INTEGER NOT NULL DEFAULT 0,
		total       INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		note        TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_records_owner ON records(user_id, created_at);
`}

const recordColumns = `id, user_id, zone_id, zone_type, made, total, created_at, note`

// Repository keeps shooting session rows in SQLite. Every query is scoped
// to one owner.
type Repository struct {
	db *sql.DB
}

func OpenRepository(path string) (*Repository, error) {
	conn, err := db.Open(path, schema)
	if err != nil {
		return nil, err
	}
	return &Repository{db: conn}, nil
}

// OpenMemoryRepository creates an in-memory repository for testing.
func OpenMemoryRepository() (*Repository, error) {
	return OpenRepository(":memory:")
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (store.Record, error) {
	var rec store.Record
	err := s.Scan(&rec.ID, &rec.UserID, &rec.ZoneID, &rec.ZoneType, &rec.Made, &rec.Total, &rec.CreatedAt, &rec.Note)
	return rec, err
}

// List returns the owner's rows, newest first. A non-zero id narrows the
// result to that row.
func (r *Repository) List(ctx context.Context, owner string, id int64) ([]store.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ?`
	args := []any{owner}
	if id != 0 {
		q += ` AND id = ?`
		args = append(args, id)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []store.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Insert writes rows in one transaction and returns them as stored. An
// empty created_at becomes the current time.
func (r *Repository) Insert(ctx context.Context, rows []store.NewRecord, now time.Time) ([]store.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	out := make([]store.Record, 0, len(rows))
	for _, nr := range rows {
		createdAt := nr.CreatedAt
		if createdAt == "" {
			createdAt = now.UTC().Format(time.RFC3339)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (user_id, zone_id, zone_type, made, total, created_at, note) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			nr.UserID, nr.ZoneID, nr.ZoneType, nr.Made, nr.Total, createdAt, nr.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("insert record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert record id: %w", err)
		}
		out = append(out, store.Record{
			ID:        id,
			UserID:    nr.UserID,
			ZoneID:    nr.ZoneID,
			ZoneType:  nr.ZoneType,
			Made:      nr.Made,
			Total:     nr.Total,
			CreatedAt: createdAt,
			Note:      nr.Note,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return out, nil
}

// Update applies p to the owner's row id and returns the rows it touched.
func (r *Repository) Update(ctx context.Context, owner string, id int64, p store.RecordPatch) ([]store.Record, error) {
	var (
		sets []string
		args []any
	)
	if p.Made != nil {
		sets = append(sets, "made = ?")
		args = append(args, *p.Made)
	}
	if p.Total != nil {
		sets = append(sets, "total = ?")
		args = append(args, *p.Total)
	}
	if p.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *p.Note)
	}
	if p.CreatedAt != nil {
		sets = append(sets, "created_at = ?")
		args = append(args, *p.CreatedAt)
	}

	if len(sets) > 0 {
		args = append(args, id, owner)
		q := `UPDATE records SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("update record %d: %w", id, err)
		}
	}
	return r.List(ctx, owner, id)
}

// Delete removes the owner's row id, or every row of the owner when id is
// zero, and returns what was removed.
func (r *Repository) Delete(ctx context.Context, owner string, id int64) ([]store.Record, error) {
	gone, err := r.List(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	q := `DELETE FROM records WHERE user_id = ?`
	args := []any{owner}
	if id != 0 {
		q += ` AND id = ?`
		args = append(args, id)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("delete records: %w", err)
	}
	return gone, nil
}

// SessionsByOwner loads every row grouped by owner, for club rankings.
func (r *Repository) SessionsByOwner(ctx context.Context) (map[string][]store.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]store.Session)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out[rec.UserID] = append(out[rec.UserID], store.SessionFromRecord(rec))
	}
	return out, rows.Err()
}
