package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

// profileRanges are the windows the profile can average over, in days.
var profileRanges = []int{7, 30, 90, 180, 365}

type profileModel struct {
	width  int
	height int

	sessions    []store.Session
	today       time.Time
	trendPoints int

	rangeIdx int
	scopeIdx int

	chart barchart.Model
}

func newProfileModel(windowDays, trendPoints int) profileModel {
	idx := 1
	for i, d := range profileRanges {
		if d == windowDays {
			idx = i
		}
	}
	return profileModel{
		rangeIdx:    idx,
		trendPoints: trendPoints,
		chart:       barchart.New(60, 12),
	}
}

func (p *profileModel) setSize(w, h int) {
	p.width = w
	p.height = h
	p.buildChart()
}

func (p *profileModel) setSessions(sessions []store.Session, today time.Time) {
	p.sessions = sessions
	p.today = today
	p.buildChart()
}

func (p profileModel) days() int          { return profileRanges[p.rangeIdx] }
func (p profileModel) scope() stats.Scope { return stats.Scopes[p.scopeIdx] }

func (p profileModel) update(msg tea.Msg) (profileModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Left):
		if p.rangeIdx > 0 {
			p.rangeIdx--
		}
	case key.Matches(keyMsg, keys.Right):
		if p.rangeIdx < len(profileRanges)-1 {
			p.rangeIdx++
		}
	case key.Matches(keyMsg, keys.Up):
		p.scopeIdx = (p.scopeIdx + len(stats.Scopes) - 1) % len(stats.Scopes)
	case key.Matches(keyMsg, keys.Down):
		p.scopeIdx = (p.scopeIdx + 1) % len(stats.Scopes)
	default:
		return p, nil
	}
	p.buildChart()
	return p, nil
}

// windowed is the part of the history inside the selected range.
func (p profileModel) windowed() []store.Session {
	return stats.FilterByWindow(p.sessions, p.days(), p.today)
}

func (p *profileModel) buildChart() {
	chartWidth := p.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if p.height > 30 {
		chartHeight = 16
	}

	p.chart = barchart.New(chartWidth, chartHeight)

	points := stats.ChronologicalSeries(p.windowed(), p.scope(), p.trendPoints)
	var bars []barchart.BarData
	for _, pt := range points {
		style := pctStyle(pt.Percentage, true)
		label := store.DateOf(pt.Date)
		if t, err := store.ParseDate(label); err == nil {
			label = t.Format("01/02")
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  fmt.Sprintf("%d%%", pt.Percentage),
				Value: float64(pt.Percentage),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}

	p.chart.PushAll(bars)
	p.chart.Draw()
}

func (p profileModel) view() string {
	w := p.width - 4

	var rangeTabs []string
	for i, d := range profileRanges {
		label := fmt.Sprintf("%dd", d)
		if i == p.rangeIdx {
			rangeTabs = append(rangeTabs, activeTabStyle.Render(label))
		} else {
			rangeTabs = append(rangeTabs, inactiveTabStyle.Render(label))
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Profile"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, rangeTabs...), "  ",
		highlightStyle.Render(p.scope().Label()),
	)

	windowed := p.windowed()
	avg := stats.Average(windowed, p.scope())
	has := len(stats.FilterByScope(windowed, p.scope())) > 0
	summary := fmt.Sprintf("  Average over %d days: %s", p.days(), pctStyle(avg, has).Render(formatPct(avg, has)))

	chartView := mutedStyle.Render("  No sessions in this range")
	if has {
		chartView = p.chart.View()
	}

	nav := mutedStyle.Render("  ←/→: range  ↑/↓: shot type")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", summary, "", chartView, "", p.renderBreakdown(windowed, w), "", nav,
		),
	)
}

// renderBreakdown lists every scope for the selected range next to the
// career totals.
func (p profileModel) renderBreakdown(windowed []store.Session, w int) string {
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-14s %8s %8s %7s", "", "Sessions", "Made", "Pct")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 40))))

	for _, scope := range stats.Scopes {
		t := stats.Career(stats.FilterByScope(windowed, scope))
		has := t.Shots > 0
		rows = append(rows, fmt.Sprintf("  %-14s %8d %8s %7s",
			scope.Label(), t.Sessions, fmt.Sprintf("%d/%d", t.Made, t.Shots),
			pctStyle(t.Percentage, has).Render(formatPct(t.Percentage, has)),
		))
	}

	career := stats.Career(p.sessions)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  Career: %d sessions, %d shots, %s",
		career.Sessions, career.Shots, formatPct(career.Percentage, career.Shots > 0))))
	return strings.Join(rows, "\n")
}
