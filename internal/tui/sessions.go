package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/tracker"
	"github.com/LadyMermelada/basketscore/internal/zones"
)

const opTimeout = 20 * time.Second

// allTypes is the filter option that matches every zone type.
const allTypes = "all"

type sessionsModel struct {
	tracker *tracker.Tracker
	width   int
	height  int

	all    []store.Session
	rows   []store.Session
	filter stats.HistoryFilter
	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit", "delete", "filter"

	// Form field pointers (survive value copies)
	formZone     *string
	formMade     *string
	formTotal    *string
	formDate     *string
	formNote     *string
	formZoneType *string
	formConfirm  *bool

	editingID int64
}

func newSessionsModel(t *tracker.Tracker) sessionsModel {
	zone, made, total, date, note, typ, confirm := "", "", "", "", "", allTypes, false
	return sessionsModel{
		tracker:      t,
		formZone:     &zone,
		formMade:     &made,
		formTotal:    &total,
		formDate:     &date,
		formNote:     &note,
		formZoneType: &typ,
		formConfirm:  &confirm,
	}
}

func (s *sessionsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s *sessionsModel) setSessions(sessions []store.Session) {
	s.all = sessions
	s.applyFilter()
}

func (s *sessionsModel) applyFilter() {
	s.rows = stats.HistoryView(s.all, s.filter)
	if s.cursor >= len(s.rows) {
		s.cursor = max(0, len(s.rows)-1)
	}
}

func (s sessionsModel) selected() (store.Session, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rows) {
		return store.Session{}, false
	}
	return s.rows[s.cursor], true
}

func (s sessionsModel) update(msg tea.Msg) (sessionsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}
	case key.Matches(keyMsg, keys.New):
		return s.showNewForm("")
	case key.Matches(keyMsg, keys.Edit):
		if _, ok := s.selected(); ok {
			return s.showEditForm()
		}
	case key.Matches(keyMsg, keys.Delete):
		if _, ok := s.selected(); ok {
			return s.showDeleteForm()
		}
	case key.Matches(keyMsg, keys.Filter):
		return s.showFilterForm()
	case key.Matches(keyMsg, keys.Back):
		if s.filter != (stats.HistoryFilter{}) {
			s.filter = stats.HistoryFilter{}
			s.applyFilter()
		}
	}
	return s, nil
}

func zoneOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, z := range zones.All() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", z.Label, z.Type.Label()), z.ID))
	}
	return opts
}

func validateCount(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func validateDate(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	if _, err := store.ParseDate(strings.TrimSpace(v)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func validateNote(v string) error {
	if len([]rune(v)) > store.MaxNoteLength {
		return fmt.Errorf("at most %d characters", store.MaxNoteLength)
	}
	return nil
}

func (s sessionsModel) showNewForm(zoneID string) (sessionsModel, tea.Cmd) {
	if zoneID == "" {
		zoneID = zones.All()[0].ID
	}
	*s.formZone = zoneID
	*s.formMade = ""
	*s.formTotal = ""
	*s.formDate = s.tracker.Now().Format(store.DateLayout)
	*s.formNote = ""
	s.formType = "new"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Zone").Options(zoneOptions()...).Value(s.formZone),
			huh.NewInput().Title("Made").Value(s.formMade).Validate(validateCount),
			huh.NewInput().Title("Attempts").Value(s.formTotal).Validate(validateCount),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(s.formDate).Validate(validateDate),
			huh.NewInput().Title("Note").CharLimit(store.MaxNoteLength).Value(s.formNote).Validate(validateNote),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) showEditForm() (sessionsModel, tea.Cmd) {
	sess, _ := s.selected()
	*s.formMade = strconv.Itoa(sess.Made)
	*s.formTotal = strconv.Itoa(sess.Total)
	*s.formDate = store.DateOf(sess.Date)
	*s.formNote = sess.Note
	s.formType = "edit"
	s.editingID = sess.ID

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title(sess.ZoneLabel).Description(sess.ZoneType.Label()),
			huh.NewInput().Title("Made").Value(s.formMade).Validate(validateCount),
			huh.NewInput().Title("Attempts").Value(s.formTotal).Validate(validateCount),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(s.formDate).Validate(validateDate),
			huh.NewInput().Title("Note").CharLimit(store.MaxNoteLength).Value(s.formNote).Validate(validateNote),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) showDeleteForm() (sessionsModel, tea.Cmd) {
	sess, _ := s.selected()
	*s.formConfirm = false
	s.formType = "delete"
	s.editingID = sess.ID

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s on %s (%d/%d)?", sess.ZoneLabel, store.DateOf(sess.Date), sess.Made, sess.Total)).
				Affirmative("Delete").
				Negative("Keep").
				Value(s.formConfirm),
		),
	).WithShowHelp(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) showFilterForm() (sessionsModel, tea.Cmd) {
	*s.formZoneType = allTypes
	if s.filter.ZoneType != "" {
		*s.formZoneType = string(s.filter.ZoneType)
	}
	*s.formDate = s.filter.Date
	s.formType = "filter"

	typeOptions := []huh.Option[string]{huh.NewOption("All zones", allTypes)}
	for _, t := range zones.Types {
		typeOptions = append(typeOptions, huh.NewOption(t.Label(), string(t)))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Zone type").Options(typeOptions...).Value(s.formZoneType),
			huh.NewInput().Title("Date (YYYY-MM-DD, empty for any)").Value(s.formDate).Validate(validateDate),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) updateForm(msg tea.Msg) (sessionsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateAborted {
		s.formActive = false
		s.form = nil
		return s, nil
	}
	if s.form.State != huh.StateCompleted {
		return s, cmd
	}

	s.formActive = false
	s.form = nil
	switch s.formType {
	case "new":
		return s, createCmd(s.tracker, store.Draft{
			ZoneID: *s.formZone,
			Date:   strings.TrimSpace(*s.formDate),
			Made:   atoi(*s.formMade),
			Total:  atoi(*s.formTotal),
			Note:   strings.TrimSpace(*s.formNote),
		})
	case "edit":
		made, total := atoi(*s.formMade), atoi(*s.formTotal)
		date, note := strings.TrimSpace(*s.formDate), strings.TrimSpace(*s.formNote)
		p := store.Patch{Made: &made, Total: &total, Note: &note}
		if date != "" {
			p.Date = &date
		}
		return s, updateCmd(s.tracker, s.editingID, p)
	case "delete":
		if *s.formConfirm {
			return s, deleteCmd(s.tracker, s.editingID)
		}
	case "filter":
		s.filter = stats.HistoryFilter{Date: strings.TrimSpace(*s.formDate)}
		if *s.formZoneType != allTypes {
			s.filter.ZoneType = zones.Type(*s.formZoneType)
		}
		s.cursor = 0
		s.applyFilter()
	}
	return s, nil
}

func atoi(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

func createCmd(t *tracker.Tracker, d store.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		sess, err := t.Create(ctx, d)
		if err != nil {
			return statusMsg{text: "Save failed: " + err.Error(), isError: true}
		}
		return sessionSavedMsg{session: sess}
	}
}

func updateCmd(t *tracker.Tracker, id int64, p store.Patch) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		sess, err := t.Update(ctx, id, p)
		if err != nil {
			return statusMsg{text: "Update failed: " + err.Error(), isError: true}
		}
		return sessionSavedMsg{session: sess, edited: true}
	}
}

func deleteCmd(t *tracker.Tracker, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := t.Delete(ctx, id); err != nil {
			return statusMsg{text: "Delete failed: " + err.Error(), isError: true}
		}
		return sessionDeletedMsg{id: id}
	}
}

func (s sessionsModel) view() string {
	w := s.width - 4
	if s.formActive && s.form != nil {
		var title string
		switch s.formType {
		case "edit":
			title = "Edit Session"
		case "delete":
			title = "Delete Session"
		case "filter":
			title = "Filter History"
		default:
			title = "Log Session"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", s.form.View())
		return panelStyle.Width(w).Render(content)
	}
	return s.renderList(w)
}

func (s sessionsModel) filterLabel() string {
	var parts []string
	if s.filter.ZoneType != "" {
		parts = append(parts, s.filter.ZoneType.Label())
	}
	if s.filter.Date != "" {
		parts = append(parts, s.filter.Date)
	}
	if len(parts) == 0 {
		return ""
	}
	return "filtered: " + strings.Join(parts, ", ")
}

func (s sessionsModel) renderList(w int) string {
	title := titleStyle.Render("History")
	if label := s.filterLabel(); label != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", warningStyle.Render(label))
	}

	if len(s.rows) == 0 {
		hint := "No sessions yet. Press n to log one."
		if len(s.all) > 0 {
			hint = "No sessions match. Press esc to clear the filter."
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(hint)))
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-10s  %-20s %-12s %7s %5s  %s", "Date", "Zone", "Type", "Made", "Pct", "Note")))

	// Keep the cursor on screen.
	visible := s.height - 8
	if visible < 3 {
		visible = 3
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := min(len(s.rows), start+visible)

	for i := start; i < end; i++ {
		sess := s.rows[i]
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		has := sess.Total > 0
		pct := stats.Percentage(sess.Made, sess.Total)
		line := style.Render(fmt.Sprintf("%s%-10s  %-20s %-12s %3d/%-3d",
			cursor, store.DateOf(sess.Date), truncate(sess.ZoneLabel, 20), sess.ZoneType.Label(), sess.Made, sess.Total))
		rows = append(rows, line+" "+pctStyle(pct, has).Render(fmt.Sprintf("%5s", formatPct(pct, has)))+"  "+mutedStyle.Render(sess.Note))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d of %d sessions", len(s.rows), len(s.all))))
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  f: filter  esc: clear filter"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
