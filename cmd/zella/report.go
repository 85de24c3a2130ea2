package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/analytics"
	"github.com/newthinker/zella/internal/app"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/config"
)

var (
	reportUser   string
	reportRange  string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every dashboard for a journal",
	Long:  "Build the performance, temporal, risk, monthly, psychology and playbook views for one user's journal.",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportUser, "user", auth.GuestUserID, "journal owner")
	reportCmd.Flags().StringVar(&reportRange, "range", string(analytics.WindowLifetime), "performance window: LIFETIME or 30D")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "json", "output format: json or yaml")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	window, err := analytics.ParseWindow(strings.ToUpper(reportRange))
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		rep, err := a.Journal().Report(cmd.Context(), auth.Admin(), reportUser, window)
		if err != nil {
			return err
		}
		log.Debug("report built", zap.String("user", reportUser), zap.Int("trades", rep.Trades))
		return writeOutput(cmd.OutOrStdout(), reportFormat, rep)
	})
}
