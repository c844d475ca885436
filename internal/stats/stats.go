// Package stats derives shooting percentages, windowed averages, trend
// series and history projections from a session list. Every function is
// pure: inputs are never modified and "today" is supplied by the caller.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/zones"
)

// NoData marks a zone with no logged attempts, as opposed to 0%.
const NoData = -1

// Scope selects either every session or a single shot type.
type Scope string

// Global covers every session regardless of shot type.
const Global Scope = "global"

// Scopes lists the scopes shown on the dashboard, global first.
var Scopes = []Scope{Global, Scope(zones.FreeThrow), Scope(zones.MidRange), Scope(zones.ThreePoint)}

func ScopeOf(t zones.Type) Scope { return Scope(t) }

// ParseScope accepts "global"/"all" or any shot type spelling.
func ParseScope(s string) (Scope, bool) {
	switch s {
	case "", "global", "all":
		return Global, true
	}
	t, ok := zones.ParseType(s)
	if !ok {
		return "", false
	}
	return Scope(t), true
}

func (s Scope) Label() string {
	if s == Global {
		return "Global"
	}
	return zones.Type(s).Label()
}

func (s Scope) match(sess store.Session) bool {
	return s == Global || sess.ZoneType == zones.Type(s)
}

// Percentage returns made/total as a whole percentage, rounding halves up.
// A non-positive total yields 0.
func Percentage(made, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(100*made)/float64(total) + 0.5))
}

func sums(sessions []store.Session) (made, total int) {
	for _, s := range sessions {
		made += s.Made
		total += s.Total
	}
	return made, total
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FilterByWindow keeps sessions dated on or after today minus days. Sessions
// with unparseable dates are dropped.
func FilterByWindow(sessions []store.Session, days int, today time.Time) []store.Session {
	cutoff := day(today).AddDate(0, 0, -days)
	var out []store.Session
	for _, s := range sessions {
		d, err := store.ParseDate(s.Date)
		if err != nil {
			continue
		}
		if !d.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// FilterByZoneType keeps sessions whose snapshot type equals t.
func FilterByZoneType(sessions []store.Session, t zones.Type) []store.Session {
	var out []store.Session
	for _, s := range sessions {
		if s.ZoneType == t {
			out = append(out, s)
		}
	}
	return out
}

// FilterByScope keeps the sessions matched by scope.
func FilterByScope(sessions []store.Session, scope Scope) []store.Session {
	if scope == Global {
		return append([]store.Session(nil), sessions...)
	}
	return FilterByZoneType(sessions, zones.Type(scope))
}

// Average is the aggregate percentage of every session in scope.
func Average(sessions []store.Session, scope Scope) int {
	return Percentage(sums(FilterByScope(sessions, scope)))
}

// AverageForWindow is the aggregate percentage of the sessions in scope over
// the last days days.
func AverageForWindow(sessions []store.Session, days int, scope Scope, today time.Time) int {
	return Average(FilterByWindow(sessions, days, today), scope)
}

// Point is one session reduced to its date and percentage.
type Point struct {
	Date       string
	Percentage int
}

// ChronologicalSeries orders the sessions in scope by date, oldest first,
// keeping input order for equal dates. A positive limit keeps only the most
// recent limit points.
func ChronologicalSeries(sessions []store.Session, scope Scope, limit int) []Point {
	filtered := FilterByScope(sessions, scope)
	sort.SliceStable(filtered, func(i, j int) bool {
		return store.DateOf(filtered[i].Date) < store.DateOf(filtered[j].Date)
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	points := make([]Point, 0, len(filtered))
	for _, s := range filtered {
		points = append(points, Point{Date: s.Date, Percentage: Percentage(s.Made, s.Total)})
	}
	return points
}

// HistoryFilter narrows the history view. Zero values match everything.
type HistoryFilter struct {
	ZoneType zones.Type
	Date     string
}

// HistoryView returns the matching sessions newest first, keeping input
// order for equal dates.
func HistoryView(sessions []store.Session, f HistoryFilter) []store.Session {
	var out []store.Session
	for _, s := range sessions {
		if f.ZoneType != "" && s.ZoneType != f.ZoneType {
			continue
		}
		if f.Date != "" && store.DateOf(s.Date) != f.Date {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return store.DateOf(out[i].Date) > store.DateOf(out[j].Date)
	})
	return out
}

// Recent returns the n newest sessions.
func Recent(sessions []store.Session, n int) []store.Session {
	h := HistoryView(sessions, HistoryFilter{})
	if len(h) > n {
		h = h[:n]
	}
	return h
}

// ZonePercentages maps every catalog zone to its aggregate percentage, or
// NoData when nothing was logged there.
func ZonePercentages(sessions []store.Session) map[string]int {
	type acc struct{ made, total, count int }
	byZone := make(map[string]*acc)
	for _, s := range sessions {
		a := byZone[s.ZoneID]
		if a == nil {
			a = &acc{}
			byZone[s.ZoneID] = a
		}
		a.made += s.Made
		a.total += s.Total
		a.count++
	}

	out := make(map[string]int)
	for _, z := range zones.All() {
		a := byZone[z.ID]
		if a == nil || a.count == 0 {
			out[z.ID] = NoData
			continue
		}
		out[z.ID] = Percentage(a.made, a.total)
	}
	return out
}

// Totals summarizes a session list.
type Totals struct {
	Sessions   int
	Shots      int
	Made       int
	Percentage int
}

func Career(sessions []store.Session) Totals {
	made, total := sums(sessions)
	return Totals{
		Sessions:   len(sessions),
		Shots:      total,
		Made:       made,
		Percentage: Percentage(made, total),
	}
}

// Card is the dashboard summary of one scope: the windowed average and the
// trend of the latest sessions. HasData is false when the window holds no
// session in scope, so "no attempts" renders apart from 0%.
type Card struct {
	Scope   Scope
	Average int
	HasData bool
	Trend   []Point
}

func Cards(sessions []store.Session, days, trendPoints int, today time.Time) []Card {
	windowed := FilterByWindow(sessions, days, today)
	cards := make([]Card, 0, len(Scopes))
	for _, scope := range Scopes {
		inScope := FilterByScope(windowed, scope)
		cards = append(cards, Card{
			Scope:   scope,
			Average: Percentage(sums(inScope)),
			HasData: len(inScope) > 0,
			Trend:   ChronologicalSeries(sessions, scope, trendPoints),
		})
	}
	return cards
}
