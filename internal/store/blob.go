package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LadyMermelada/basketscore/internal/db"
)

// BlobStore is a string-keyed blob store, the device storage used by
// LocalStore.
type BlobStore interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

var blobSchema = db.Schema{`
	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);
`}

// SQLiteBlobs keeps blobs in the kv table of the device database.
type SQLiteBlobs struct {
	db *sql.DB
}

// OpenBlobs opens (or creates) the device database at path.
func OpenBlobs(path string) (*SQLiteBlobs, error) {
	conn, err := db.Open(path, blobSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteBlobs{db: conn}, nil
}

// OpenMemoryBlobs creates an in-memory blob store for testing.
func OpenMemoryBlobs() (*SQLiteBlobs, error) {
	return OpenBlobs(":memory:")
}

func (b *SQLiteBlobs) Close() error {
	return b.db.Close()
}

func (b *SQLiteBlobs) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get blob %q: %w", key, err)
	}
	return value, true, nil
}

func (b *SQLiteBlobs) Put(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}
	return nil
}

func (b *SQLiteBlobs) Remove(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove blob %q: %w", key, err)
	}
	return nil
}
