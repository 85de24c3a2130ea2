package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/app"
	"github.com/newthinker/zella/internal/config"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the journal API server",
	Long: `Serve the journal API, the change stream and /metrics, and evaluate
discipline alerts as trades arrive. SIGINT or SIGTERM drains in-flight
requests before exiting.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		log.Info("serving journal",
			zap.String("version", Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("trade_store", cfg.Storage.Trades.Backend),
		)
		err := a.Serve(ctx, Version, shutdownTimeout)
		if ctx.Err() != nil {
			log.Info("journal server stopped", zap.Duration("grace", shutdownTimeout))
		}
		return err
	})
}
