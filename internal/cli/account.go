package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LadyMermelada/basketscore/internal/auth"
	"github.com/LadyMermelada/basketscore/internal/stats"
)

var errNoRemote = errors.New("no remote collection configured: set remote.url in the config file or BASKETSCORE_REMOTE_URL")

func newLoginCmd(dir *string) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login --token <jwt>",
		Short: "Sign in with an access token and move guest sessions to the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			sess, err := auth.NewSession(token)
			if err != nil {
				return err
			}
			if sess.Expired(time.Now()) {
				return fmt.Errorf("token expired at %s", sess.ExpiresAt.Format(time.RFC3339))
			}

			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.remote == nil {
				return errNoRemote
			}
			if err := a.tokens.Save(ctx, sess); err != nil {
				return err
			}
			a.remote.SetToken(sess.AccessToken)

			res, err := a.tracker.SignIn(ctx, sess.UserID)
			if a.tracker.User() != sess.UserID {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "signed in as %s\n", sess.UserID)
			if res.Migrated > 0 {
				_, _ = fmt.Fprintf(out, "moved %d local sessions to the account\n", res.Migrated)
			}
			if err != nil {
				return fmt.Errorf("signed in, but: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token")
	return cmd
}

func newLogoutCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session and return to guest mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolveDir(*dir)
			if err != nil {
				return err
			}
			if err := auth.NewTokenFile(dir).Clear(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show whether sessions go to the device or to an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			sess, err := auth.NewTokenFile(cfg.Dir).Active(context.Background(), time.Now())
			switch {
			case errors.Is(err, auth.ErrNoSession):
				_, _ = fmt.Fprintln(out, "guest (sessions stay on this device)")
				return nil
			case err != nil:
				return err
			case !cfg.HasRemote():
				_, _ = fmt.Fprintf(out, "guest (saved session for %s ignored, no remote configured)\n", sess.UserID)
				return nil
			}

			_, _ = fmt.Fprintf(out, "%s\n", sess.UserID)
			if !sess.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintf(out, "token expires %s\n", sess.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newLeaderboardCmd(dir *string) *cobra.Command {
	var category string
	var days int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank everyone sharing the remote collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, ok := stats.ParseCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q: use tl, 2p, 3p or sessions", category)
			}

			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.remote == nil {
				return errNoRemote
			}
			if a.tracker.IsGuest() {
				return fmt.Errorf("sign in first: basketscore login --token <jwt>")
			}
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Stats.WindowDays
			}

			standings, err := a.remote.Leaderboard(ctx, cat, days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(standings) == 0 {
				_, _ = fmt.Fprintln(out, "no entries")
				return nil
			}
			for _, s := range standings {
				value := fmt.Sprintf("%d%%", s.Value)
				if cat == stats.CategorySessions {
					value = fmt.Sprintf("%d", s.Value)
				}
				_, _ = fmt.Fprintf(out, "%d\t%s\t%s\n", s.Rank, s.Player, value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "tl", "tl|2p|3p|sessions")
	cmd.Flags().IntVar(&days, "days", 30, "window in days (default from config)")
	return cmd
}
