package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/logging"
	"github.com/LadyMermelada/basketscore/internal/recordsrv"
)

const shutdownTimeout = 10 * time.Second

var errNoSecret = errors.New("no signing secret: set server.jwt_secret in the config file or BASKETSCORE_JWT_SECRET")

func newRecordsCmd(dir *string) *cobra.Command {
	records := &cobra.Command{Use: "records", Short: "Run the shared record server"}
	records.AddCommand(newServeCmd(dir), newTokenCmd(dir))
	return records
}

func newServeCmd(dir *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session collection over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*dir)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errNoSecret
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			log, err := logging.New(cfg.LogLevel, "")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repo, err := recordsrv.OpenRepository(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			srv := recordsrv.New(repo, cfg.Server.JWTSecret, recordsrv.WithLogger(log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down record server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown", zap.Error(err))
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newTokenCmd(dir *string) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dir)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errNoSecret
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.Server.TokenTTL
			}

			token, exp, err := recordsrv.IssueToken(cfg.Server.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 7*24*time.Hour, "token lifetime (default from config)")
	return cmd
}
