package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/zones"
)

func printSession(w io.Writer, s store.Session) {
	note := ""
	if s.Note != "" {
		note = "\t" + s.Note
	}
	_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%d%%%s\n",
		s.ID, store.DateOf(s.Date), s.ZoneLabel, s.ZoneType.Label(), s.Made, s.Total,
		stats.Percentage(s.Made, s.Total), note)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func newLogCmd(dir *string) *cobra.Command {
	var d store.Draft

	cmd := &cobra.Command{
		Use:   "log --zone <id> --made <n> --total <n>",
		Short: "Log a shooting session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(d.ZoneID) == "" {
				return fmt.Errorf("--zone is required (see basketscore zones)")
			}
			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.tracker.Create(ctx, d)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), "logged ")
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVar(&d.ZoneID, "zone", "", "zone id")
	cmd.Flags().IntVar(&d.Made, "made", 0, "shots made")
	cmd.Flags().IntVar(&d.Total, "total", 0, "shots attempted")
	cmd.Flags().StringVar(&d.Date, "date", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&d.Note, "note", "", "short note")
	return cmd
}

func newListCmd(dir *string) *cobra.Command {
	var zoneType, date string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f stats.HistoryFilter
			if zoneType != "" {
				t, ok := zones.ParseType(zoneType)
				if !ok {
					return fmt.Errorf("unknown zone type %q", zoneType)
				}
				f.ZoneType = t
			}
			if date != "" {
				if _, err := store.ParseDate(date); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				f.Date = date
			}

			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.tracker.Reload(ctx)
			if err != nil {
				return err
			}
			rows := stats.HistoryView(sessions, f)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range rows {
				printSession(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&zoneType, "type", "", "zone type: tl|2p|3p")
	cmd.Flags().StringVar(&date, "date", "", "only sessions on this date")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most n sessions")
	return cmd
}

func newEditCmd(dir *string) *cobra.Command {
	var made, total int
	var date, note string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a logged session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var p store.Patch
			flags := cmd.Flags()
			if flags.Changed("made") {
				p.Made = &made
			}
			if flags.Changed("total") {
				p.Total = &total
			}
			if flags.Changed("date") {
				p.Date = &date
			}
			if flags.Changed("note") {
				p.Note = &note
			}
			if p.Empty() {
				return fmt.Errorf("nothing to change: pass --made, --total, --date or --note")
			}

			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.tracker.Update(ctx, id, p)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), "updated ")
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().IntVar(&made, "made", 0, "shots made")
	cmd.Flags().IntVar(&total, "total", 0, "shots attempted")
	cmd.Flags().StringVar(&date, "date", "", "session date YYYY-MM-DD")
	cmd.Flags().StringVar(&note, "note", "", "short note")
	return cmd
}

func newDeleteCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a logged session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tracker.Delete(ctx, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func newStatsCmd(dir *string) *cobra.Command {
	var days int
	var scopeName string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show shooting averages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("days") {
				days = a.cfg.Stats.WindowDays
			}
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}

			sessions, err := a.tracker.Reload(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if scopeName != "" {
				scope, ok := stats.ParseScope(scopeName)
				if !ok {
					return fmt.Errorf("unknown scope %q: use global, tl, 2p or 3p", scopeName)
				}
				return printTrend(out, sessions, scope, days, a.cfg.Stats.TrendPoints, a.tracker.Now())
			}

			_, _ = fmt.Fprintf(out, "last %d days\n", days)
			for _, c := range stats.Cards(sessions, days, 0, a.tracker.Now()) {
				value := "--"
				if c.HasData {
					value = fmt.Sprintf("%d%%", c.Average)
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\n", c.Scope.Label(), value)
			}
			career := stats.Career(sessions)
			_, _ = fmt.Fprintf(out, "career\t%d sessions\t%d/%d\t%d%%\n",
				career.Sessions, career.Made, career.Shots, career.Percentage)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window in days (default from config)")
	cmd.Flags().StringVar(&scopeName, "scope", "", "show the trend of one scope: global|tl|2p|3p")
	return cmd
}

// printTrend prints the windowed average of scope followed by its latest
// sessions, oldest first.
func printTrend(w io.Writer, sessions []store.Session, scope stats.Scope, days, points int, today time.Time) error {
	windowed := stats.FilterByWindow(sessions, days, today)
	value := "--"
	if len(stats.FilterByScope(windowed, scope)) > 0 {
		value = fmt.Sprintf("%d%%", stats.Average(windowed, scope))
	}
	_, _ = fmt.Fprintf(w, "%s\tlast %d days\t%s\n", scope.Label(), days, value)
	for _, p := range stats.ChronologicalSeries(sessions, scope, points) {
		_, _ = fmt.Fprintf(w, "%s\t%d%%\n", store.DateOf(p.Date), p.Percentage)
	}
	return nil
}

func newZonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the court zones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, z := range zones.All() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", z.ID, z.Label, z.Type)
			}
			return nil
		},
	}
}
