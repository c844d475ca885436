// Package migrate moves a guest's local sessions into the remote record
// collection when the guest signs in.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/store"
)

// Result reports what a migration did.
type Result struct {
	Migrated int
}

// Run copies every local session to the remote collection of userID in one
// bulk insert and clears the local blob on success. Each session date is kept
// as the row's created_at.
//
// On failure the local sessions are left in place. Rows the remote side may
// already have accepted are not rolled back, so a retry can duplicate them.
func Run(ctx context.Context, local *store.LocalStore, client store.RecordClient, userID string, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	sessions, err := local.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read local sessions: %w", err)
	}
	if len(sessions) == 0 {
		return Result{}, nil
	}

	rows := make([]store.NewRecord, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, store.NewRecordFrom(s, userID))
	}

	if _, err := client.Insert(ctx, userID, rows); err != nil {
		log.Warn("migration insert failed, keeping local sessions",
			zap.String("user", userID), zap.Int("sessions", len(rows)), zap.Error(err))
		return Result{}, fmt.Errorf("migrate %d sessions: %w", len(rows), err)
	}

	if err := local.Clear(ctx); err != nil {
		return Result{Migrated: len(rows)}, fmt.Errorf("clear local sessions: %w", err)
	}

	log.Info("migrated local sessions", zap.String("user", userID), zap.Int("sessions", len(rows)))
	return Result{Migrated: len(rows)}, nil
}
