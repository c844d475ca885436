package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// SessionsKey is the blob key holding the serialized session list.
const SessionsKey = "basketscore_sessions"

// LocalStore keeps the guest's sessions as a single JSON blob. Every
// mutation rewrites the whole blob.
type LocalStore struct {
	blobs BlobStore
	opts  options
}

var _ SessionStore = (*LocalStore)(nil)

func NewLocalStore(blobs BlobStore, opts ...Option) *LocalStore {
	return &LocalStore{blobs: blobs, opts: buildOptions(opts)}
}

// load reads the blob. A missing blob is an empty list; a corrupt one is
// logged and treated as empty.
func (l *LocalStore) load(ctx context.Context) ([]Session, error) {
	raw, ok, err := l.blobs.Get(ctx, SessionsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		l.opts.log.Warn("local session blob is corrupt, starting empty", zap.Error(err))
		return nil, nil
	}
	return sessions, nil
}

func (l *LocalStore) save(ctx context.Context, sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	return l.blobs.Put(ctx, SessionsKey, string(data))
}

func (l *LocalStore) List(ctx context.Context) ([]Session, error) {
	return l.load(ctx)
}

func (l *LocalStore) Create(ctx context.Context, d Draft) (Session, error) {
	sessions, err := l.load(ctx)
	if err != nil {
		return Session{}, err
	}

	s := NewSession(d, l.nextID(sessions), l.opts.now())
	if err := Validate(s); err != nil {
		return Session{}, err
	}

	if err := l.save(ctx, append(sessions, s)); err != nil {
		return Session{}, err
	}
	l.opts.log.Debug("session created", zap.Int64("id", s.ID), zap.String("zone", s.ZoneID))
	return s, nil
}

// nextID derives an id from the current time in milliseconds, stepping past
// ids already taken.
func (l *LocalStore) nextID(sessions []Session) int64 {
	taken := make(map[int64]bool, len(sessions))
	for _, s := range sessions {
		taken[s.ID] = true
	}
	id := l.opts.now().UnixMilli()
	for taken[id] {
		id++
	}
	return id
}

func (l *LocalStore) Update(ctx context.Context, id int64, p Patch) (Session, error) {
	sessions, err := l.load(ctx)
	if err != nil {
		return Session{}, err
	}

	i := indexOf(sessions, id)
	if i < 0 {
		return Session{}, notFound(id)
	}

	updated := p.Apply(sessions[i])
	if err := Validate(updated); err != nil {
		return Session{}, err
	}
	sessions[i] = updated

	if err := l.save(ctx, sessions); err != nil {
		return Session{}, err
	}
	return updated, nil
}

func (l *LocalStore) Delete(ctx context.Context, id int64) error {
	sessions, err := l.load(ctx)
	if err != nil {
		return err
	}

	i := indexOf(sessions, id)
	if i < 0 {
		return notFound(id)
	}
	sessions = append(sessions[:i], sessions[i+1:]...)
	return l.save(ctx, sessions)
}

// Import replaces the blob with sessions as given. Records are not
// validated.
func (l *LocalStore) Import(ctx context.Context, sessions []Session) error {
	return l.save(ctx, sessions)
}

// Clear removes the blob entirely.
func (l *LocalStore) Clear(ctx context.Context) error {
	return l.blobs.Remove(ctx, SessionsKey)
}

func indexOf(sessions []Session, id int64) int {
	for i, s := range sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}
