package store

import (
	"time"
	"unicode/utf8"

	"github.com/LadyMermelada/basketscore/internal/zones"
)

// DateLayout is the calendar date format used in sessions and backups.
const DateLayout = "2006-01-02"

// MaxNoteLength bounds the free-text note, in characters.
const MaxNoteLength = 50

// Validate checks the write-time invariants of a session.
func Validate(s Session) error {
	if s.ZoneID == "" {
		return &ValidationError{Field: "zoneId", Reason: "must not be empty"}
	}
	if s.Total <= 0 {
		return &ValidationError{Field: "total", Reason: "must be greater than zero"}
	}
	if s.Made < 0 {
		return &ValidationError{Field: "made", Reason: "must not be negative"}
	}
	if s.Made > s.Total {
		return &ValidationError{Field: "made", Reason: "must not exceed total"}
	}
	if utf8.RuneCountInString(s.Note) > MaxNoteLength {
		return &ValidationError{Field: "note", Reason: "must be at most 50 characters"}
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// NewSession builds the canonical form of a draft: the zone snapshot is
// taken now and an empty date becomes today.
func NewSession(d Draft, id int64, today time.Time) Session {
	date := d.Date
	if date == "" {
		date = today.Format(DateLayout)
	}
	z := zones.Snapshot(d.ZoneID)
	return Session{
		ID:        id,
		ZoneID:    d.ZoneID,
		Date:      date,
		Total:     d.Total,
		Made:      d.Made,
		ZoneType:  z.Type,
		ZoneLabel: z.Label,
		Note:      d.Note,
	}
}

// ParseDate parses a session date. Timestamps are accepted and truncated to
// their date part.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, DateOf(s))
}

// DateOf reduces an ISO date or timestamp to YYYY-MM-DD. Values that do not
// start with a date are returned unchanged.
func DateOf(s string) string {
	if len(s) < len(DateLayout) {
		return s
	}
	head := s[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, head); err != nil {
		return s
	}
	return head
}
