package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LadyMermelada/basketscore/internal/export"
)

func newExportCmd(dir *string) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every session to a JSON backup or a CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q: use json or csv", format)
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

			path := out
			if path == "" {
				path = export.BackupFileName(a.tracker.Now())
				if format == "csv" {
					path = strings.TrimSuffix(path, ".json") + ".csv"
				}
			}

			if format == "csv" {
				err = export.ToCSV(sessions, path)
			} else {
				err = export.ToJSON(sessions, path)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d sessions to %s\n", len(sessions), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json|csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default basketscore_backup_<date>)")
	return cmd
}

func newImportCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Replace every session with the contents of a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := export.FromFile(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := openApp(ctx, *dir, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tracker.Import(ctx, sessions); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d sessions\n", len(sessions))
			return nil
		},
	}
}
