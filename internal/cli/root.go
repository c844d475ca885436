// Package cli wires the basketscore commands: the TUI at the root and
// scriptable subcommands for sessions, backups, accounts and the record
// server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/auth"
	"github.com/LadyMermelada/basketscore/internal/config"
	"github.com/LadyMermelada/basketscore/internal/logging"
	"github.com/LadyMermelada/basketscore/internal/remote"
	"github.com/LadyMermelada/basketscore/internal/store"
	"github.com/LadyMermelada/basketscore/internal/tracker"
	"github.com/LadyMermelada/basketscore/internal/tui"
)

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:           "basketscore",
		Short:         "Track basketball shooting practice",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(dir)
		},
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "config and data directory (default ~/.config/basketscore)")

	root.AddCommand(newLogCmd(&dir))
	root.AddCommand(newListCmd(&dir))
	root.AddCommand(newEditCmd(&dir))
	root.AddCommand(newDeleteCmd(&dir))
	root.AddCommand(newStatsCmd(&dir))
	root.AddCommand(newZonesCmd())
	root.AddCommand(newExportCmd(&dir))
	root.AddCommand(newImportCmd(&dir))
	root.AddCommand(newLoginCmd(&dir))
	root.AddCommand(newLogoutCmd(&dir))
	root.AddCommand(newWhoamiCmd(&dir))
	root.AddCommand(newLeaderboardCmd(&dir))
	root.AddCommand(newRecordsCmd(&dir))
	return root
}

// app is everything a command needs, opened from the config directory.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	blobs   *store.SQLiteBlobs
	tokens  *auth.TokenFile
	remote  *remote.Client
	tracker *tracker.Tracker
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return config.DefaultDir()
}

func loadConfig(dir string) (config.Config, error) {
	dir, err := resolveDir(dir)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return config.Load(dir)
}

// openApp loads the config and opens the device store. The TUI logs to the
// configured file so the screen stays clean; commands log to stderr.
func openApp(ctx context.Context, dir string, logToFile bool) (*app, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	logPath := ""
	if logToFile {
		logPath = cfg.LogFile
	}
	log, err := logging.New(cfg.LogLevel, logPath)
	if err != nil {
		return nil, err
	}

	blobs, err := store.OpenBlobs(cfg.DBPath)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		blobs:  blobs,
		tokens: auth.NewTokenFile(cfg.Dir),
	}

	opts := []tracker.Option{tracker.WithLogger(log)}
	var client store.RecordClient
	if cfg.HasRemote() {
		a.remote = remote.New(cfg.Remote.URL, cfg.Remote.AnonKey,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(log),
		)
		client = a.remote

		sess, err := a.tokens.Active(ctx, time.Now())
		switch {
		case err == nil:
			a.remote.SetToken(sess.AccessToken)
			opts = append(opts, tracker.WithUser(sess.UserID))
		case errors.Is(err, auth.ErrNoSession):
			log.Debug("no saved session, starting as guest", zap.Error(err))
		default:
			log.Warn("could not read saved session, starting as guest", zap.Error(err))
		}
	}

	local := store.NewLocalStore(blobs, store.WithLogger(log))
	a.tracker = tracker.New(local, client, opts...)
	return a, nil
}

func (a *app) Close() {
	if err := a.blobs.Close(); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func runTUI(dir string) error {
	a, err := openApp(context.Background(), dir, true)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.NewApp(tui.Deps{
		Tracker: a.tracker,
		Tokens:  a.tokens,
		Remote:  a.remote,
		Config:  a.cfg,
		Log:     a.log,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
