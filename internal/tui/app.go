package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/auth"
	"github.com/LadyMermelada/basketscore/internal/config"
	"github.com/LadyMermelada/basketscore/internal/export"
	"github.com/LadyMermelada/basketscore/internal/remote"
	"github.com/LadyMermelada/basketscore/internal/tracker"
)

// Deps is what the app needs from the outside. Remote is nil when no remote
// collection is configured.
type Deps struct {
	Tracker *tracker.Tracker
	Tokens  *auth.TokenFile
	Remote  *remote.Client
	Config  config.Config
	Log     *zap.Logger
}

// App is the root Bubble Tea model.
type App struct {
	tracker *tracker.Tracker
	cfg     config.Config
	log     *zap.Logger
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	sessions  sessionsModel
	profile   profileModel
	club      clubModel
	account   accountModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(d Deps) App {
	h := help.New()
	h.ShowAll = false

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config

	return App{
		tracker:    d.Tracker,
		cfg:        cfg,
		log:        log,
		activeView: viewCourt,
		dashboard:  newDashboardModel(cfg.Stats.WindowDays, cfg.Stats.TrendPoints),
		sessions:   newSessionsModel(d.Tracker),
		profile:    newProfileModel(cfg.Stats.WindowDays, cfg.Stats.TrendPoints),
		club:       newClubModel(d.Tracker, d.Remote, cfg.Stats.WindowDays),
		account:    newAccountModel(d.Tracker, d.Tokens, d.Remote, cfg),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return reloadCmd(a.tracker)
}

// reloadCmd fetches the session list from the active store.
func reloadCmd(t *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		sessions, err := t.Reload(ctx)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

// snapshotCmd publishes the tracker's current list without touching a store.
func snapshotCmd(t *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		return sessionsMsg{sessions: t.Snapshot()}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.sessions.setSize(a.width, contentHeight)
		a.profile.setSize(a.width, contentHeight)
		a.club.setSize(a.width, contentHeight)
		a.account.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Reload) && a.activeView != viewClub:
			a.setStatus("Reloading...", false)
			return a, reloadCmd(a.tracker)
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewCourt)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewSessions)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewProfile)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewClub)
		case key.Matches(msg, keys.Tab5):
			return a.switchView(viewAccount)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	case sessionsMsg:
		if msg.err != nil {
			a.log.Warn("reload failed", zap.Error(msg.err))
			a.setStatus("Could not load sessions: "+msg.err.Error(), true)
		} else if a.status == "Reloading..." {
			a.setStatus("", false)
		}
		today := a.tracker.Now()
		a.dashboard.setSessions(msg.sessions, today)
		a.sessions.setSessions(msg.sessions)
		a.profile.setSessions(msg.sessions, today)
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		if msg.isError {
			a.log.Warn("tui error", zap.String("status", msg.text))
		}
		return a, nil

	case zonePickedMsg:
		a.activeView = viewSessions
		var cmd tea.Cmd
		a.sessions, cmd = a.sessions.showNewForm(msg.zoneID)
		return a, cmd

	case sessionSavedMsg:
		verb := "Logged"
		if msg.edited {
			verb = "Updated"
		}
		a.setStatus(fmt.Sprintf("%s %s %d/%d", verb, msg.session.ZoneLabel, msg.session.Made, msg.session.Total), false)
		return a, snapshotCmd(a.tracker)

	case sessionDeletedMsg:
		a.setStatus("Session deleted", false)
		return a, snapshotCmd(a.tracker)

	case importDoneMsg:
		a.setStatus(fmt.Sprintf("Imported %d sessions", msg.count), false)
		return a, snapshotCmd(a.tracker)

	case signedInMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		switch {
		case msg.user == "":
			a.setStatus("Sign in failed: "+msg.err.Error(), true)
		case msg.err != nil:
			a.log.Warn("sign in finished with errors", zap.String("user", msg.user), zap.Error(msg.err))
			a.setStatus("Signed in as "+msg.user+", but: "+msg.err.Error(), true)
		case msg.result.Migrated > 0:
			a.setStatus(fmt.Sprintf("Signed in as %s, moved %d local sessions", msg.user, msg.result.Migrated), false)
		default:
			a.setStatus("Signed in as "+msg.user, false)
		}
		clubCmd := a.club.refresh()
		return a, tea.Batch(cmd, snapshotCmd(a.tracker), clubCmd)

	case signedOutMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		a.club.standings = nil
		a.setStatus("Signed out, back to guest mode", false)
		return a, tea.Batch(cmd, snapshotCmd(a.tracker))

	case leaderboardMsg:
		var cmd tea.Cmd
		a.club, cmd = a.club.update(msg)
		if msg.err != nil {
			a.log.Warn("leaderboard failed", zap.Error(msg.err))
		}
		return a, cmd

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	if v == viewClub {
		cmd := a.club.refresh()
		return a, cmd
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewCourt:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewSessions:
		a.sessions, cmd = a.sessions.update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.update(msg)
	case viewClub:
		a.club, cmd = a.club.update(msg)
	case viewAccount:
		a.account, cmd = a.account.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewCourt:
		return a.dashboard.picking
	case viewSessions:
		return a.sessions.formActive
	case viewAccount:
		return a.account.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewCourt:
		content = a.dashboard.view()
	case viewSessions:
		content = a.sessions.view()
	case viewProfile:
		content = a.profile.view()
	case viewClub:
		content = a.club.view()
	case viewAccount:
		content = a.account.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("basketscore")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := statusBarStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	mode := warningStyle.Render(" ● guest")
	if !a.tracker.IsGuest() {
		mode = successStyle.Render(" ● " + truncate(a.tracker.User(), 12))
	}

	left := footerStyle.Render(helpView)
	right := mode + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON backup"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// exportDir is where exports land: the home directory, or the app directory
// when there is none.
func (a App) exportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return a.cfg.Dir
}

func (a App) doExport(format int) tea.Cmd {
	t, dir := a.tracker, a.exportDir()
	return func() tea.Msg {
		sessions := t.Snapshot()
		name := export.BackupFileName(t.Now())

		var path string
		if format == 0 {
			path = filepath.Join(dir, strings.TrimSuffix(name, ".json")+".csv")
			if err := export.ToCSV(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, name)
			if err := export.ToJSON(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
