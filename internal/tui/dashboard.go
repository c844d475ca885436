package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/zones"
)

const recentCount = 5

// dashboardModel is the court view: stat cards, the zone grid and the
// latest sessions.
type dashboardModel struct {
	width  int
	height int

	windowDays  int
	trendPoints int

	cards  []stats.Card
	byZone map[string]int
	recent []store.Session
	career stats.Totals

	// Zone picker state
	picking      bool
	pickerCursor int
	catalog      []zones.Zone
}

func newDashboardModel(windowDays, trendPoints int) dashboardModel {
	return dashboardModel{
		windowDays:  windowDays,
		trendPoints: trendPoints,
		byZone:      stats.ZonePercentages(nil),
		catalog:     zones.All(),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *dashboardModel) setSessions(sessions []store.Session, today time.Time) {
	d.cards = stats.Cards(sessions, d.windowDays, d.trendPoints, today)
	d.byZone = stats.ZonePercentages(sessions)
	d.recent = stats.Recent(sessions, recentCount)
	d.career = stats.Career(sessions)
}

// zonePickedMsg asks the sessions view to open a new session form for a zone.
type zonePickedMsg struct {
	zoneID string
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return d, nil
	}

	if d.picking {
		return d.updatePicker(keyMsg)
	}

	if key.Matches(keyMsg, keys.New) {
		d.picking = true
		d.pickerCursor = 0
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.catalog)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		d.picking = false
		id := d.catalog[d.pickerCursor].ID
		return d, func() tea.Msg { return zonePickedMsg{zoneID: id} }
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d dashboardModel) view() string {
	w := d.width - 4
	if w < 40 {
		w = 40
	}

	if d.picking {
		return d.renderPicker(w)
	}

	cards := d.renderCards(w)
	court := d.renderCourt(w)
	recent := d.renderRecent(w)

	return lipgloss.JoinVertical(lipgloss.Left, cards, court, recent)
}

func (d dashboardModel) renderCards(w int) string {
	if len(d.cards) == 0 {
		return panelStyle.Width(w).Render(mutedStyle.Render("No sessions yet. Press n to log one."))
	}

	cardWidth := w/len(d.cards) - 2
	if cardWidth < 16 {
		cardWidth = 16
	}

	var rendered []string
	for _, c := range d.cards {
		title := subtitleStyle.Render(c.Scope.Label())
		value := pctStyle(c.Average, c.HasData).Inherit(cardValueStyle).Render(formatPct(c.Average, c.HasData))
		window := mutedStyle.Render(fmt.Sprintf("last %d days", d.windowDays))

		trend := mutedStyle.Render("no trend")
		if len(c.Trend) > 1 {
			trend = renderTrend(c.Trend, cardWidth-4)
		}

		rendered = append(rendered, cardStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, value, window, trend),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func renderTrend(points []stats.Point, w int) string {
	if w < 4 {
		w = 4
	}
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, float64(p.Percentage))
	}
	sl := sparkline.New(w, 2)
	sl.PushAll(values)
	sl.Draw()
	return lipgloss.NewStyle().Foreground(colorSecondary).Render(sl.View())
}

// renderCourt lays the zones out one row per shot type, three-pointers first.
func (d dashboardModel) renderCourt(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Court"))
	for _, t := range []zones.Type{zones.ThreePoint, zones.MidRange, zones.FreeThrow} {
		var cells []string
		for _, z := range zones.OfType(t) {
			pct := d.byZone[z.ID]
			has := pct != stats.NoData
			cell := lipgloss.JoinVertical(lipgloss.Center,
				truncate(z.Label, 16),
				pctStyle(pct, has).Render(formatPct(pct, has)),
			)
			cells = append(cells, zoneCellStyle.Render(cell))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d dashboardModel) renderRecent(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recent) == 0 {
		return panelStyle.Width(w).Render(title + "\n\n" + mutedStyle.Render("Nothing logged yet"))
	}

	rows := []string{title, ""}
	for _, s := range d.recent {
		has := s.Total > 0
		pct := stats.Percentage(s.Made, s.Total)
		rows = append(rows, fmt.Sprintf("  %s  %-20s %3d/%-3d %s",
			mutedStyle.Render(store.DateOf(s.Date)),
			truncate(s.ZoneLabel, 20),
			s.Made, s.Total,
			pctStyle(pct, has).Render(formatPct(pct, has)),
		))
	}

	career := mutedStyle.Render(fmt.Sprintf("  Career: %d sessions, %d/%d made, %s",
		d.career.Sessions, d.career.Made, d.career.Shots,
		formatPct(d.career.Percentage, d.career.Shots > 0),
	))
	rows = append(rows, "", career)
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderPicker(w int) string {
	rows := []string{titleStyle.Render("Pick a zone"), ""}
	for i, z := range d.catalog {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-20s %s", cursor, z.Label, mutedStyle.Render(z.Type.Label()))))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: log session  esc: cancel"))
	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
