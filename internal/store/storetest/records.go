// Package storetest provides an in-memory RecordClient for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"

	"github.com/LadyMermelada/basketscore/internal/store"
)

// Records is an in-memory remote record collection. Set Err to make every
// call fail, or FailInsertAfter to fail an Insert after that many rows were
// written.
type Records struct {
	rows   []store.Record
	nextID int64

	Err             error
	FailInsertAfter int
	Calls           []string
}

var _ store.RecordClient = (*Records)(nil)

func NewRecords() *Records {
	return &Records{nextID: 1, FailInsertAfter: -1}
}

// Rows returns every stored row regardless of owner.
func (m *Records) Rows() []store.Record {
	out := make([]store.Record, len(m.rows))
	copy(out, m.rows)
	return out
}

// Seed inserts rows directly, bypassing Err.
func (m *Records) Seed(rows ...store.NewRecord) {
	for _, r := range rows {
		m.add(r)
	}
}

func (m *Records) add(r store.NewRecord) store.Record {
	rec := store.Record{
		ID:        m.nextID,
		UserID:    r.UserID,
		ZoneID:    r.ZoneID,
		ZoneType:  r.ZoneType,
		Made:      r.Made,
		Total:     r.Total,
		CreatedAt: r.CreatedAt,
		Note:      r.Note,
	}
	m.nextID++
	m.rows = append(m.rows, rec)
	return rec
}

func (m *Records) fail(op string) error {
	m.Calls = append(m.Calls, op)
	if m.Err != nil {
		return fmt.Errorf("%s: %w: %v", op, store.ErrTransport, m.Err)
	}
	return nil
}

func (m *Records) Select(_ context.Context, owner string) ([]store.Record, error) {
	if err := m.fail("select"); err != nil {
		return nil, err
	}
	var out []store.Record
	for _, r := range m.rows {
		if r.UserID == owner {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Records) Get(_ context.Context, owner string, id int64) (store.Record, error) {
	if err := m.fail("get"); err != nil {
		return store.Record{}, err
	}
	for _, r := range m.rows {
		if r.ID == id && r.UserID == owner {
			return r, nil
		}
	}
	return store.Record{}, fmt.Errorf("record %d: %w", id, store.ErrNotFound)
}

func (m *Records) Insert(_ context.Context, owner string, rows []store.NewRecord) ([]store.Record, error) {
	if err := m.fail("insert"); err != nil {
		return nil, err
	}
	var out []store.Record
	for i, r := range rows {
		if m.FailInsertAfter >= 0 && i >= m.FailInsertAfter {
			return nil, fmt.Errorf("insert: %w: injected failure after %d rows", store.ErrTransport, i)
		}
		r.UserID = owner
		out = append(out, m.add(r))
	}
	return out, nil
}

func (m *Records) Update(_ context.Context, owner string, id int64, p store.RecordPatch) (store.Record, error) {
	if err := m.fail("update"); err != nil {
		return store.Record{}, err
	}
	for i, r := range m.rows {
		if r.ID != id || r.UserID != owner {
			continue
		}
		if p.Made != nil {
			r.Made = *p.Made
		}
		if p.Total != nil {
			r.Total = *p.Total
		}
		if p.Note != nil {
			r.Note = *p.Note
		}
		if p.CreatedAt != nil {
			r.CreatedAt = *p.CreatedAt
		}
		m.rows[i] = r
		return r, nil
	}
	return store.Record{}, fmt.Errorf("record %d: %w", id, store.ErrNotFound)
}

func (m *Records) Delete(_ context.Context, owner string, id int64) (int, error) {
	if err := m.fail("delete"); err != nil {
		return 0, err
	}
	for i, r := range m.rows {
		if r.ID == id && r.UserID == owner {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Records) DeleteAll(_ context.Context, owner string) error {
	if err := m.fail("delete_all"); err != nil {
		return err
	}
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.UserID != owner {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}
