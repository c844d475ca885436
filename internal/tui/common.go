package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/migrate"
	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewCourt viewState = iota
	viewSessions
	viewProfile
	viewClub
	viewAccount
)

var viewNames = []string{"Court", "Sessions", "Profile", "Club", "Account"}

// --- Messages ---

// sessionsMsg carries a fresh snapshot from the tracker.
type sessionsMsg struct {
	sessions []store.Session
	err      error
}

type statusMsg struct {
	text    string
	isError bool
}

type sessionSavedMsg struct {
	session store.Session
	edited  bool
}

type sessionDeletedMsg struct {
	id int64
}

type leaderboardMsg struct {
	category  stats.Category
	standings []stats.Standing
	err       error
}

type signedInMsg struct {
	user   string
	result migrate.Result
	err    error
}

type signedOutMsg struct{}

type importDoneMsg struct {
	count int
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatPct renders a percentage, or "--" when there were no attempts.
func formatPct(pct int, hasData bool) string {
	if !hasData || pct == stats.NoData {
		return "--"
	}
	return fmt.Sprintf("%d%%", pct)
}

// pctStyle colors a percentage by how good it is.
func pctStyle(pct int, hasData bool) lipgloss.Style {
	switch {
	case !hasData || pct == stats.NoData:
		return mutedStyle
	case pct >= 50:
		return successStyle
	case pct >= 35:
		return warningStyle
	default:
		return errorStyle
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
