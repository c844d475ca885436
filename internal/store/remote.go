package store

import (
	"context"

	"go.uber.org/zap"
)

// RecordClient is the remote record collection, scoped by owner id. Errors
// should wrap ErrNotFound for missing rows and ErrTransport for everything
// else that went wrong on the wire.
type RecordClient interface {
	// Select returns the owner's rows ordered by created_at, newest first.
	Select(ctx context.Context, owner string) ([]Record, error)
	Get(ctx context.Context, owner string, id int64) (Record, error)
	Insert(ctx context.Context, owner string, rows []NewRecord) ([]Record, error)
	Update(ctx context.Context, owner string, id int64, p RecordPatch) (Record, error)
	// Delete returns the number of rows removed.
	Delete(ctx context.Context, owner string, id int64) (int, error)
	DeleteAll(ctx context.Context, owner string) error
}

// RemoteStore keeps an authenticated user's sessions in the remote record
// collection. After every successful mutation it reloads the list from the
// server instead of patching its snapshot locally. A failed call leaves the
// snapshot untouched.
type RemoteStore struct {
	client RecordClient
	owner  string
	opts   options

	snapshot []Session
	loaded   bool
}

var (
	_ SessionStore = (*RemoteStore)(nil)
	_ Refresher    = (*RemoteStore)(nil)
)

func NewRemoteStore(client RecordClient, owner string, opts ...Option) *RemoteStore {
	return &RemoteStore{client: client, owner: owner, opts: buildOptions(opts)}
}

// Owner returns the user id the store is scoped to.
func (r *RemoteStore) Owner() string { return r.owner }

// List returns the cached snapshot, fetching it on first use.
func (r *RemoteStore) List(ctx context.Context) ([]Session, error) {
	if r.loaded {
		return cloneSessions(r.snapshot), nil
	}
	return r.Refresh(ctx)
}

// Refresh reloads the snapshot from the server.
func (r *RemoteStore) Refresh(ctx context.Context) ([]Session, error) {
	rows, err := r.client.Select(ctx, r.owner)
	if err != nil {
		return nil, transport("list remote sessions", err)
	}
	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, SessionFromRecord(row))
	}
	r.snapshot = sessions
	r.loaded = true
	return cloneSessions(sessions), nil
}

// reload runs after a successful mutation. The mutation already happened,
// so a failed reload only invalidates the cache.
func (r *RemoteStore) reload(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		r.loaded = false
		r.opts.log.Warn("reload after remote mutation failed", zap.String("owner", r.owner), zap.Error(err))
	}
}

func (r *RemoteStore) Create(ctx context.Context, d Draft) (Session, error) {
	s := NewSession(d, 0, r.opts.now())
	if err := Validate(s); err != nil {
		return Session{}, err
	}

	rows, err := r.client.Insert(ctx, r.owner, []NewRecord{NewRecordFrom(s, r.owner)})
	if err != nil {
		return Session{}, transport("insert remote session", err)
	}
	if len(rows) > 0 {
		s = SessionFromRecord(rows[0])
	}

	r.reload(ctx)
	return s, nil
}

func (r *RemoteStore) Update(ctx context.Context, id int64, p Patch) (Session, error) {
	row, err := r.client.Get(ctx, r.owner, id)
	if err != nil {
		return Session{}, transport("get remote session", err)
	}

	merged := p.Apply(SessionFromRecord(row))
	if err := Validate(merged); err != nil {
		return Session{}, err
	}

	updated, err := r.client.Update(ctx, r.owner, id, RecordPatchFrom(p))
	if err != nil {
		return Session{}, transport("update remote session", err)
	}

	r.reload(ctx)
	return SessionFromRecord(updated), nil
}

func (r *RemoteStore) Delete(ctx context.Context, id int64) error {
	n, err := r.client.Delete(ctx, r.owner, id)
	if err != nil {
		return transport("delete remote session", err)
	}
	if n == 0 {
		return notFound(id)
	}

	r.reload(ctx)
	return nil
}

// Import deletes every row of the owner and inserts sessions in their place.
// The two steps are separate calls, so a failure between them leaves the
// remote collection empty.
func (r *RemoteStore) Import(ctx context.Context, sessions []Session) error {
	if err := r.client.DeleteAll(ctx, r.owner); err != nil {
		return transport("clear remote sessions", err)
	}
	r.loaded = false

	if len(sessions) > 0 {
		rows := make([]NewRecord, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, NewRecordFrom(s, r.owner))
		}
		if _, err := r.client.Insert(ctx, r.owner, rows); err != nil {
			return transport("insert imported sessions", err)
		}
	}

	r.reload(ctx)
	return nil
}
