package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/remote"
	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/tracker"
)

// clubModel shows the leaderboard of everyone sharing the remote collection.
type clubModel struct {
	tracker *tracker.Tracker
	remote  *remote.Client
	width   int
	height  int

	days      int
	catIdx    int
	standings []stats.Standing
	loading   bool
	err       error
}

func newClubModel(t *tracker.Tracker, rc *remote.Client, days int) clubModel {
	return clubModel{tracker: t, remote: rc, days: days}
}

func (c *clubModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c clubModel) category() stats.Category { return stats.Categories[c.catIdx] }

func (c clubModel) available() bool {
	return c.remote != nil && !c.tracker.IsGuest()
}

func (c *clubModel) refresh() tea.Cmd {
	if !c.available() {
		return nil
	}
	c.loading = true
	rc, cat, days := c.remote, c.category(), c.days
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		standings, err := rc.Leaderboard(ctx, cat, days)
		return leaderboardMsg{category: cat, standings: standings, err: err}
	}
}

func (c clubModel) update(msg tea.Msg) (clubModel, tea.Cmd) {
	switch msg := msg.(type) {
	case leaderboardMsg:
		// Drop answers for a category the user already moved away from.
		if msg.category != c.category() {
			return c, nil
		}
		c.loading = false
		c.standings = msg.standings
		c.err = msg.err
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			c.catIdx = (c.catIdx + len(stats.Categories) - 1) % len(stats.Categories)
		case key.Matches(msg, keys.Right):
			c.catIdx = (c.catIdx + 1) % len(stats.Categories)
		case key.Matches(msg, keys.Reload):
		default:
			return c, nil
		}
		cmd := c.refresh()
		return c, cmd
	}
	return c, nil
}

func (c clubModel) view() string {
	w := c.width - 4

	var tabs []string
	for i, cat := range stats.Categories {
		if i == c.catIdx {
			tabs = append(tabs, activeTabStyle.Render(cat.Label()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(cat.Label()))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Club"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...), "  ",
		mutedStyle.Render(fmt.Sprintf("last %d days", c.days)),
	)

	var body string
	switch {
	case c.remote == nil:
		body = mutedStyle.Render("  No remote collection configured. Set remote.url in the config file.")
	case c.tracker.IsGuest():
		body = mutedStyle.Render("  Sign in from the Account tab to see the club leaderboard.")
	case c.loading:
		body = mutedStyle.Render("  Loading...")
	case c.err != nil:
		body = errorStyle.Render("  Could not load the leaderboard: " + c.err.Error())
	case len(c.standings) == 0:
		body = mutedStyle.Render("  Nobody has logged anything in this window yet.")
	default:
		body = c.renderTable()
	}

	nav := mutedStyle.Render("  ←/→: category  r: reload")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", nav))
}

func (c clubModel) renderTable() string {
	me := c.tracker.User()
	valueHeader := "Pct"
	if c.category() == stats.CategorySessions {
		valueHeader = "Sessions"
	}

	rows := []string{mutedStyle.Render(fmt.Sprintf("  %4s  %-36s %8s", "#", "Player", valueHeader))}
	for _, s := range c.standings {
		value := fmt.Sprintf("%d%%", s.Value)
		if c.category() == stats.CategorySessions {
			value = fmt.Sprintf("%d", s.Value)
		}
		style := normalItemStyle
		if s.Player == me {
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("  %4d  %-36s %8s", s.Rank, truncate(s.Player, 36), value)))
	}
	return strings.Join(rows, "\n")
}
