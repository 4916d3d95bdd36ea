package cli

import (
	"encoding/json"
	"errors"
	"os"

	"quizmaster/internal/export"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStatsCmd prints the stats of a user recomputed from history.
func NewStatsCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's stats as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.service.Stats(cmd.Context(), userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}

// NewExportCmd writes a user's history and stats to an XLSX workbook.
func NewExportCmd(configPath *string) *cobra.Command {
	var userID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's history to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if out == "" {
				out = userID + "-history.xlsx"
			}
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			history, err := rt.service.History(cmd.Context(), userID)
			if err != nil {
				return err
			}
			stats, err := rt.service.Stats(cmd.Context(), userID)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteHistory(f, history, stats); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			rt.log.WithFields(logrus.Fields{"user_id": userID, "attempts": len(history), "path": out}).Info("history exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <user>-history.xlsx)")
	return cmd
}
