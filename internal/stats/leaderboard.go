package stats

import (
	"sort"
	"time"

	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/zones"
)

// Category is a leaderboard ranking: a shot type ranked by windowed
// percentage, or CategorySessions ranked by how many sessions were logged.
type Category string

const CategorySessions Category = "sessions"

var Categories = []Category{
	Category(zones.FreeThrow),
	Category(zones.MidRange),
	Category(zones.ThreePoint),
	CategorySessions,
}

func ParseCategory(s string) (Category, bool) {
	if s == string(CategorySessions) {
		return CategorySessions, true
	}
	t, ok := zones.ParseType(s)
	if !ok {
		return "", false
	}
	return Category(t), true
}

func (c Category) Label() string {
	if c == CategorySessions {
		return "Sessions"
	}
	return zones.Type(c).Label()
}

// Standing is one player's place on a leaderboard.
type Standing struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Value  int    `json:"value"`
}

// Leaderboard ranks players over the last days days. Players with nothing
// in the window for the category are left out. Ties share a rank and are
// listed by player name.
func Leaderboard(byPlayer map[string][]store.Session, cat Category, days int, today time.Time) []Standing {
	var out []Standing
	for player, sessions := range byPlayer {
		windowed := FilterByWindow(sessions, days, today)
		if cat == CategorySessions {
			if len(windowed) > 0 {
				out = append(out, Standing{Player: player, Value: len(windowed)})
			}
			continue
		}
		typed := FilterByZoneType(windowed, zones.Type(cat))
		if len(typed) == 0 {
			continue
		}
		out = append(out, Standing{Player: player, Value: Percentage(sums(typed))})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Player < out[j].Player
	})
	for i := range out {
		if i > 0 && out[i].Value == out[i-1].Value {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}
