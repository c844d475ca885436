package store

import "github.com/LadyMermelada/basketscore/internal/zones"

// Session is one logged practice entry. ZoneType and ZoneLabel are copied
// from the catalog when the session is created and are not re-synced if the
// catalog changes later.
type Session struct {
	ID        int64      `json:"id"`
	ZoneID    string     `json:"zoneId"`
	Date      string     `json:"date"`
	Total     int        `json:"total"`
	Made      int        `json:"made"`
	ZoneType  zones.Type `json:"zoneType"`
	ZoneLabel string     `json:"zoneLabel"`
	Note      string     `json:"note"`
}

// Draft is the user input for a new session. An empty Date means today.
type Draft struct {
	ZoneID string
	Date   string
	Total  int
	Made   int
	Note   string
}

// Patch holds the fields an edit may replace. Nil fields are left alone.
type Patch struct {
	Made  *int
	Total *int
	Note  *string
	Date  *string
}

// Apply returns s with the non-nil fields of p merged in.
func (p Patch) Apply(s Session) Session {
	if p.Made != nil {
		s.Made = *p.Made
	}
	if p.Total != nil {
		s.Total = *p.Total
	}
	if p.Note != nil {
		s.Note = *p.Note
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	return s
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Made == nil && p.Total == nil && p.Note == nil && p.Date == nil
}

// Record is a row of the remote shooting_sessions collection.
type Record struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	ZoneID    string `json:"zone_id"`
	ZoneType  string `json:"zone_type"`
	Made      int    `json:"made"`
	Total     int    `json:"total"`
	CreatedAt string `json:"created_at"`
	Note      string `json:"note"`
}

// NewRecord is the creation shape of a remote row; the server assigns the id.
type NewRecord struct {
	UserID    string `json:"user_id"`
	ZoneID    string `json:"zone_id"`
	ZoneType  string `json:"zone_type"`
	Made      int    `json:"made"`
	Total     int    `json:"total"`
	CreatedAt string `json:"created_at"`
	Note      string `json:"note"`
}

// RecordPatch is the partial update body sent to the remote store.
type RecordPatch struct {
	Made      *int    `json:"made,omitempty"`
	Total     *int    `json:"total,omitempty"`
	Note      *string `json:"note,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// RecordPatchFrom converts a session patch to the remote column names.
func RecordPatchFrom(p Patch) RecordPatch {
	return RecordPatch{Made: p.Made, Total: p.Total, Note: p.Note, CreatedAt: p.Date}
}

// NewRecordFrom maps a session into the remote creation shape, keeping the
// session date as created_at.
func NewRecordFrom(s Session, owner string) NewRecord {
	return NewRecord{
		UserID:    owner,
		ZoneID:    s.ZoneID,
		ZoneType:  string(s.ZoneType),
		Made:      s.Made,
		Total:     s.Total,
		CreatedAt: s.Date,
		Note:      s.Note,
	}
}

// SessionFromRecord maps a remote row into a Session. The remote store keeps
// no label, so it is derived from the zone id.
func SessionFromRecord(r Record) Session {
	zt := zones.Type(r.ZoneType)
	z := zones.Snapshot(r.ZoneID)
	if zt == "" {
		zt = z.Type
	}
	return Session{
		ID:        r.ID,
		ZoneID:    r.ZoneID,
		Date:      DateOf(r.CreatedAt),
		Total:     r.Total,
		Made:      r.Made,
		ZoneType:  zt,
		ZoneLabel: z.Label,
		Note:      r.Note,
	}
}
