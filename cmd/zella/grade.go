package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/app"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/config"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/storage/trade"
)

var (
	gradeUser    string
	gradeDate    string
	gradeAccount string
	gradeTrades  string
	gradeFormat  string
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade one trading day with the configured LLM",
	Long: `Grade the execution of a day's trades. Trades come from the journal
for --date, or from a JSON file of trades with --trades.`,
	RunE: runGrade,
}

func init() {
	gradeCmd.Flags().StringVar(&gradeUser, "user", auth.GuestUserID, "journal owner")
	gradeCmd.Flags().StringVar(&gradeDate, "date", "", "calendar day YYYY-MM-DD (default today)")
	gradeCmd.Flags().StringVar(&gradeAccount, "account", "", "restrict to one account")
	gradeCmd.Flags().StringVar(&gradeTrades, "trades", "", "grade trades from this JSON file instead of the journal")
	gradeCmd.Flags().StringVarP(&gradeFormat, "format", "f", "json", "output format: json or yaml")

	rootCmd.AddCommand(gradeCmd)
}

func runGrade(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		grader := a.Grader()
		if grader == nil {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("no llm provider configured"))
		}

		trades, err := gradeSelection(cmd.Context(), a)
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			return core.WrapError(core.ErrNoData, fmt.Errorf("no trades to grade"))
		}

		var acct *core.Account
		if gradeAccount != "" {
			found, ok := a.Journal().Account(gradeAccount)
			if !ok {
				return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown account %q", gradeAccount))
			}
			acct = &found
		}

		ctx := cmd.Context()
		if cfg.Coach.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Coach.Timeout)
			defer cancel()
		}

		log.Info("grading trades", zap.Int("count", len(trades)))
		grade, err := grader.Grade(ctx, trades, acct)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), gradeFormat, grade)
	})
}

func gradeSelection(ctx context.Context, a *app.App) ([]core.Trade, error) {
	if gradeTrades != "" {
		data, err := os.ReadFile(gradeTrades)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", gradeTrades, err)
		}
		var trades []core.Trade
		if err := jsonAPI.Unmarshal(data, &trades); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", gradeTrades, err)
		}
		return trades, nil
	}

	loc := a.Journal().CalendarZone()
	day := time.Now().In(loc)
	if gradeDate != "" {
		d, err := time.ParseInLocation(time.DateOnly, gradeDate, loc)
		if err != nil {
			return nil, core.WrapError(core.ErrOutOfRange, fmt.Errorf("date: %w", err))
		}
		day = d
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return a.Journal().List(ctx, auth.Admin(), gradeUser, trade.Filter{
		AccountID: gradeAccount,
		From:      start,
		To:        start.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
}
