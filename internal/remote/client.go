// Package remote is the HTTP client for the remote record collection. It
// speaks the PostgREST dialect: filters travel as column=eq.value query
// parameters and writes ask for the affected rows back.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

const (
	sessionsPath    = "/rest/v1/shooting_sessions"
	leaderboardPath = "/rest/v1/leaderboard"

	// DefaultTimeout bounds every request when no timeout is configured.
	DefaultTimeout = 15 * time.Second
)

// Client implements store.RecordClient over HTTP.
type Client struct {
	baseURL string
	anonKey string
	token   string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

var _ store.RecordClient = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.timeout > 0 {
		// Copy so a shared client such as http.DefaultClient is left alone.
		h := *c.http
		h.Timeout = c.timeout
		c.http = &h
	}
	return c
}

// SetToken replaces the bearer token, e.g. after a new login.
func (c *Client) SetToken(token string) { c.token = token }

func eq(v string) string { return "eq." + v }

func ownerQuery(owner string) url.Values {
	q := url.Values{}
	q.Set("user_id", eq(owner))
	return q
}

func rowQuery(owner string, id int64) url.Values {
	q := ownerQuery(owner)
	q.Set("id", eq(strconv.FormatInt(id, 10)))
	return q
}

// do sends one request and decodes the JSON response into out when out is
// not nil. Any failure is reported as store.ErrTransport.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", store.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", store.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s returned status %d: %s",
			store.ErrTransport, method, path, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", store.ErrTransport, err)
	}
	return nil
}

func (c *Client) Select(ctx context.Context, owner string) ([]store.Record, error) {
	q := ownerQuery(owner)
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []store.Record
	if err := c.do(ctx, http.MethodGet, sessionsPath, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Get(ctx context.Context, owner string, id int64) (store.Record, error) {
	q := rowQuery(owner, id)
	q.Set("select", "*")

	var rows []store.Record
	if err := c.do(ctx, http.MethodGet, sessionsPath, q, nil, &rows); err != nil {
		return store.Record{}, err
	}
	if len(rows) == 0 {
		return store.Record{}, fmt.Errorf("record %d: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func (c *Client) Insert(ctx context.Context, owner string, rows []store.NewRecord) ([]store.Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	body := make([]store.NewRecord, len(rows))
	for i, r := range rows {
		r.UserID = owner
		body[i] = r
	}

	var out []store.Record
	if err := c.do(ctx, http.MethodPost, sessionsPath, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, owner string, id int64, p store.RecordPatch) (store.Record, error) {
	var rows []store.Record
	if err := c.do(ctx, http.MethodPatch, sessionsPath, rowQuery(owner, id), p, &rows); err != nil {
		return store.Record{}, err
	}
	if len(rows) == 0 {
		return store.Record{}, fmt.Errorf("record %d: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func (c *Client) Delete(ctx context.Context, owner string, id int64) (int, error) {
	var rows []store.Record
	if err := c.do(ctx, http.MethodDelete, sessionsPath, rowQuery(owner, id), nil, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *Client) DeleteAll(ctx context.Context, owner string) error {
	return c.do(ctx, http.MethodDelete, sessionsPath, ownerQuery(owner), nil, nil)
}

// Leaderboard fetches the club ranking for a category over the last days
// days.
func (c *Client) Leaderboard(ctx context.Context, cat stats.Category, days int) ([]stats.Standing, error) {
	q := url.Values{}
	q.Set("category", string(cat))
	q.Set("days", strconv.Itoa(days))

	var out []stats.Standing
	if err := c.do(ctx, http.MethodGet, leaderboardPath, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}
