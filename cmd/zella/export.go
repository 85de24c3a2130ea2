package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/app"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/config"
)

var exportUser string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a journal to the configured archive",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "journal owner (required)")
	exportCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		path, err := a.Journal().Export(cmd.Context(), auth.Admin(), exportUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s (%s archive)\n", exportUser, path, archiveName(cfg))
		return nil
	})
}

func archiveName(cfg *config.Config) string {
	if cfg.Storage.Archive.Backend == "" {
		return "local"
	}
	return cfg.Storage.Archive.Backend
}
