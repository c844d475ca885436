// Package auth keeps the signed-in user's bearer token on the device. The
// app only needs the user id from it; the record server checks signatures.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession means no usable token is stored; the app runs as guest.
	ErrNoSession = errors.New("not signed in")

	ErrInvalidToken = errors.New("invalid token")
)

// Identity is what the app reads from an access token.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// ParseToken reads the sub and exp claims of a JWT without verifying its
// signature.
func ParseToken(raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	id := Identity{UserID: sub}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time.UTC()
	}
	return id, nil
}

// Session is the persisted sign-in state.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// NewSession builds the sign-in state for a raw access token.
func NewSession(raw string) (Session, error) {
	id, err := ParseToken(raw)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: raw, UserID: id.UserID, ExpiresAt: id.ExpiresAt}, nil
}

// Expired reports whether the token is past its expiry at now. Tokens
// without exp never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TokenFile stores the Session as JSON on disk.
type TokenFile struct {
	path string
}

func NewTokenFile(dir string) *TokenFile {
	return &TokenFile{path: filepath.Join(dir, "session.json")}
}

func (f *TokenFile) Path() string { return f.path }

func (f *TokenFile) Save(_ context.Context, s Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(f.path, payload, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *TokenFile) Load(_ context.Context) (Session, error) {
	payload, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	s := Session{}
	if err := json.Unmarshal(payload, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.AccessToken == "" || s.UserID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (f *TokenFile) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Active loads the stored session and reports ErrNoSession when it is
// missing or expired at now.
func (f *TokenFile) Active(ctx context.Context, now time.Time) (Session, error) {
	s, err := f.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(now) {
		return Session{}, fmt.Errorf("token expired at %s: %w", s.ExpiresAt.Format(time.RFC3339), ErrNoSession)
	}
	return s, nil
}
