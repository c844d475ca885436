// Package tracker is the composition point of the app. It owns the active
// session store, the latest snapshot of sessions and the switch between the
// guest's local store and a signed-in user's remote store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/migrate"
	"github.com/LadyMermelada/basketscore/internal/store"
)

// ErrNoRemote is returned by SignIn when no remote record store is
// configured.
var ErrNoRemote = errors.New("no remote store configured")

type Option func(*Tracker)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithUser starts the tracker already signed in, as when a saved token is
// found at startup. No migration runs in that case.
func WithUser(userID string) Option {
	return func(t *Tracker) { t.user = userID }
}

// Tracker is safe for use from concurrent commands; calls are serialized.
// IsGuest and User only wait for a sign in or out in progress to switch
// users, never for store I/O.
type Tracker struct {
	mu sync.Mutex
	// userMu guards user for readers that do not hold mu. Writers hold both.
	userMu sync.RWMutex

	local  *store.LocalStore
	client store.RecordClient
	log    *zap.Logger
	now    func() time.Time

	user     string
	active   store.SessionStore
	snapshot []store.Session
}

// New builds a tracker over the device store and an optional remote client.
// It does no I/O; call Reload to fetch the first snapshot.
func New(local *store.LocalStore, client store.RecordClient, opts ...Option) *Tracker {
	t := &Tracker{
		local:  local,
		client: client,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, fn := range opts {
		fn(t)
	}
	if t.user != "" && t.client == nil {
		t.log.Warn("saved session ignored, no remote store configured", zap.String("user", t.user))
		t.user = ""
	}
	t.activate()
	return t
}

func (t *Tracker) activate() {
	if t.user == "" {
		t.active = t.local
		return
	}
	t.active = store.NewRemoteStore(t.client, t.user, store.WithLogger(t.log), store.WithClock(t.now))
}

func (t *Tracker) IsGuest() bool {
	return t.User() == ""
}

// User returns the signed-in user id, empty for a guest.
func (t *Tracker) User() string {
	t.userMu.RLock()
	defer t.userMu.RUnlock()
	return t.user
}

func (t *Tracker) setUser(userID string) {
	t.userMu.Lock()
	t.user = userID
	t.userMu.Unlock()
}

// Store returns the active store.
func (t *Tracker) Store() store.SessionStore {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Now returns the tracker clock, the "today" used for aggregation.
func (t *Tracker) Now() time.Time { return t.now() }

// Snapshot returns a copy of the latest session list.
func (t *Tracker) Snapshot() []store.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copySnapshot()
}

func (t *Tracker) copySnapshot() []store.Session {
	out := make([]store.Session, len(t.snapshot))
	copy(out, t.snapshot)
	return out
}

// Reload fetches the session list from the active store. On failure the
// previous snapshot is kept.
func (t *Tracker) Reload(ctx context.Context) ([]store.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reload(ctx)
}

func (t *Tracker) reload(ctx context.Context) ([]store.Session, error) {
	var (
		sessions []store.Session
		err      error
	)
	if r, ok := t.active.(store.Refresher); ok {
		sessions, err = r.Refresh(ctx)
	} else {
		sessions, err = t.active.List(ctx)
	}
	if err != nil {
		return t.copySnapshot(), err
	}
	t.snapshot = sessions
	return t.copySnapshot(), nil
}

// sync picks up the store's view after a successful mutation. The mutation
// has already been applied, so a failure here is only logged.
func (t *Tracker) sync(ctx context.Context) {
	sessions, err := t.active.List(ctx)
	if err != nil {
		t.log.Warn("could not refresh sessions after change", zap.Error(err))
		return
	}
	t.snapshot = sessions
}

func (t *Tracker) Create(ctx context.Context, d store.Draft) (store.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.active.Create(ctx, d)
	if err != nil {
		return store.Session{}, err
	}
	t.sync(ctx)
	return s, nil
}

func (t *Tracker) Update(ctx context.Context, id int64, p store.Patch) (store.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.active.Update(ctx, id, p)
	if err != nil {
		return store.Session{}, err
	}
	t.sync(ctx)
	return s, nil
}

func (t *Tracker) Delete(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.active.Delete(ctx, id); err != nil {
		return err
	}
	t.sync(ctx)
	return nil
}

// Import replaces every session of the active store.
func (t *Tracker) Import(ctx context.Context, sessions []store.Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.active.Import(ctx, sessions); err != nil {
		return err
	}
	t.sync(ctx)
	return nil
}

// SignIn switches to the remote store of userID. Coming from guest mode, the
// local sessions are migrated first. A failed migration is reported but the
// user stays signed in and the local sessions are kept for the next attempt.
func (t *Tracker) SignIn(ctx context.Context, userID string) (migrate.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return migrate.Result{}, ErrNoRemote
	}
	if userID == "" {
		return migrate.Result{}, fmt.Errorf("sign in: empty user id")
	}
	if userID == t.user {
		return migrate.Result{}, nil
	}

	var (
		res    migrate.Result
		migErr error
	)
	if t.user == "" {
		res, migErr = migrate.Run(ctx, t.local, t.client, userID, t.log)
		if migErr != nil {
			migErr = fmt.Errorf("migrate local sessions: %w", migErr)
		}
	}

	t.setUser(userID)
	t.activate()
	t.log.Info("signed in", zap.String("user", userID), zap.Int("migrated", res.Migrated))

	_, reloadErr := t.reload(ctx)
	return res, errors.Join(migErr, reloadErr)
}

// SignOut returns to guest mode on the device store.
func (t *Tracker) SignOut(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return nil
	}
	t.log.Info("signed out", zap.String("user", t.user))
	t.setUser("")
	t.activate()
	_, err := t.reload(ctx)
	return err
}
