package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/auth"
	"github.com/LadyMermelada/basketscore/internal/config"
	"github.com/LadyMermelada/basketscore/internal/export"
	"github.com/LadyMermelada/basketscore/internal/remote"
	"github.com/LadyMermelada/basketscore/internal/tracker"
)

type accountModel struct {
	tracker *tracker.Tracker
	tokens  *auth.TokenFile
	remote  *remote.Client
	cfg     config.Config
	width   int
	height  int

	expiresAt time.Time

	formActive bool
	form       *huh.Form
	formKind   string // "login", "import"

	// Form values as pointers (survive value copies)
	token      *string
	importPath *string
	confirm    *bool
}

func newAccountModel(t *tracker.Tracker, tokens *auth.TokenFile, rc *remote.Client, cfg config.Config) accountModel {
	token, path, confirm := "", "", false
	return accountModel{
		tracker:    t,
		tokens:     tokens,
		remote:     rc,
		cfg:        cfg,
		token:      &token,
		importPath: &path,
		confirm:    &confirm,
	}
}

func (a *accountModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

func (a accountModel) update(msg tea.Msg) (accountModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case signedInMsg:
		if msg.user != "" {
			if s, err := a.tokens.Load(context.Background()); err == nil {
				a.expiresAt = s.ExpiresAt
			}
		}
		return a, nil

	case signedOutMsg:
		a.expiresAt = time.Time{}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			if a.tracker.IsGuest() {
				return a.showLoginForm()
			}
		case key.Matches(msg, keys.Logout):
			if !a.tracker.IsGuest() {
				return a, a.signOut()
			}
		case key.Matches(msg, keys.Import):
			return a.showImportForm()
		}
	}
	return a, nil
}

func (a accountModel) showLoginForm() (accountModel, tea.Cmd) {
	if a.remote == nil {
		return a, func() tea.Msg {
			return statusMsg{text: "No remote collection configured", isError: true}
		}
	}
	*a.token = ""
	a.formKind = "login"

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Access token").
				Description("Paste the token issued for your account").
				EchoMode(huh.EchoModePassword).
				Value(a.token).
				Validate(func(v string) error {
					_, err := auth.ParseToken(strings.TrimSpace(v))
					return err
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a accountModel) showImportForm() (accountModel, tea.Cmd) {
	*a.importPath = ""
	*a.confirm = false
	a.formKind = "import"

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Backup file").Value(a.importPath).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("enter a path")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Replace every session with the backup?").
				Affirmative("Replace").
				Negative("Cancel").
				Value(a.confirm),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a accountModel) updateForm(msg tea.Msg) (accountModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateAborted {
		a.formActive = false
		a.form = nil
		return a, nil
	}
	if a.form.State != huh.StateCompleted {
		return a, cmd
	}

	a.formActive = false
	a.form = nil
	switch a.formKind {
	case "login":
		return a, a.signIn(strings.TrimSpace(*a.token))
	case "import":
		if *a.confirm {
			return a, importCmd(a.tracker, strings.TrimSpace(*a.importPath))
		}
	}
	return a, nil
}

func (a accountModel) signIn(raw string) tea.Cmd {
	sess, err := auth.NewSession(raw)
	if err != nil {
		return func() tea.Msg { return statusMsg{text: "Sign in failed: " + err.Error(), isError: true} }
	}
	if sess.Expired(a.tracker.Now()) {
		return func() tea.Msg { return statusMsg{text: "Sign in failed: token has expired", isError: true} }
	}
	a.remote.SetToken(sess.AccessToken)

	t, tokens := a.tracker, a.tokens
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := tokens.Save(ctx, sess); err != nil {
			return signedInMsg{err: err}
		}
		res, err := t.SignIn(ctx, sess.UserID)
		return signedInMsg{user: sess.UserID, result: res, err: err}
	}
}

func (a accountModel) signOut() tea.Cmd {
	t, tokens, rc := a.tracker, a.tokens, a.remote
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := tokens.Clear(ctx); err != nil {
			return statusMsg{text: "Sign out failed: " + err.Error(), isError: true}
		}
		if rc != nil {
			rc.SetToken("")
		}
		if err := t.SignOut(ctx); err != nil {
			return statusMsg{text: "Signed out, local history unavailable: " + err.Error(), isError: true}
		}
		return signedOutMsg{}
	}
}

func importCmd(t *tracker.Tracker, path string) tea.Cmd {
	return func() tea.Msg {
		sessions, err := export.FromFile(path)
		if err != nil {
			return statusMsg{text: "Import failed: " + err.Error(), isError: true}
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := t.Import(ctx, sessions); err != nil {
			return statusMsg{text: "Import failed: " + err.Error(), isError: true}
		}
		return importDoneMsg{count: len(sessions)}
	}
}

func (a accountModel) view() string {
	w := a.width - 4

	if a.formActive && a.form != nil {
		title := "Sign In"
		if a.formKind == "import" {
			title = "Import Backup"
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", a.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Account"), "")

	mode := warningStyle.Render("Guest (sessions stay on this device)")
	if !a.tracker.IsGuest() {
		mode = successStyle.Render("Signed in as " + a.tracker.User())
	}
	rows = append(rows, a.row("Mode", mode))
	if !a.expiresAt.IsZero() {
		rows = append(rows, a.row("Token expires", highlightStyle.Render(a.expiresAt.Local().Format("2006-01-02 15:04"))))
	}

	remoteURL := mutedStyle.Render("not configured")
	if a.cfg.HasRemote() {
		remoteURL = highlightStyle.Render(a.cfg.Remote.URL)
	}
	rows = append(rows, a.row("Remote", remoteURL))
	rows = append(rows, a.row("Database", highlightStyle.Render(a.cfg.DBPath)))
	rows = append(rows, a.row("Config", highlightStyle.Render(config.Path(a.cfg.Dir))))
	rows = append(rows, a.row("Window", highlightStyle.Render(fmt.Sprintf("%d days", a.cfg.Stats.WindowDays))))

	rows = append(rows, "")
	var hints []string
	if a.tracker.IsGuest() {
		if a.remote != nil {
			hints = append(hints, "enter: sign in")
		}
	} else {
		hints = append(hints, "o: sign out")
	}
	hints = append(hints, "m: import backup", "x: export")
	rows = append(rows, mutedStyle.Render("  "+strings.Join(hints, "  ")))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a accountModel) row(label, value string) string {
	return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(16).Render(label), value)
}
