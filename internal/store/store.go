// Package store owns the session records. Two interchangeable variants
// implement SessionStore: LocalStore keeps everything in one JSON blob on the
// device, RemoteStore talks to a per-user remote record collection.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionStore is the contract shared by the local and remote variants.
type SessionStore interface {
	// List returns the stored sessions. No order is guaranteed; callers sort.
	List(ctx context.Context) ([]Session, error)
	// Create validates the draft, assigns an id and persists it.
	Create(ctx context.Context, d Draft) (Session, error)
	// Update merges p into the session and re-validates the result.
	Update(ctx context.Context, id int64, p Patch) (Session, error)
	// Delete removes a session. A second delete reports ErrNotFound.
	Delete(ctx context.Context, id int64) error
	// Import replaces the entire contents of the store.
	Import(ctx context.Context, sessions []Session) error
}

// Refresher is implemented by stores that cache a snapshot and can reload it
// from their backing store on demand.
type Refresher interface {
	Refresh(ctx context.Context) ([]Session, error)
}

type options struct {
	log *zap.Logger
	now func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger used for recoverable problems.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides time.Now, used for ids and default dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func cloneSessions(in []Session) []Session {
	if in == nil {
		return nil
	}
	out := make([]Session, len(in))
	copy(out, in)
	return out
}
