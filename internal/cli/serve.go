package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"options-screener/internal/baseline"
	"options-screener/internal/server"
)

// newServeCmd starts the ingress server and the baseline scheduler.
func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the event ingress and baseline scheduler",
		Long: `Starts the HTTP ingress that accepts screener events, serves the
alert ledger, and hosts the Kite login callback. A cron scheduler
captures the opening IV/OI baseline on trading days.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app)
		},
	}
	return cmd
}

func runServe(app *App) error {
	if app.Engine == nil {
		return fmt.Errorf("alert ledger unavailable, cannot start engine")
	}

	handler := &server.Handler{
		Engine:   app.Engine,
		Ledger:   app.Ledger,
		Provider: app.Provider,
		Logger:   app.Logger,
	}
	srv := server.New(app.Config.Server, handler, app.Logger)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sched := baseline.NewScheduler(
		app.Capturer,
		app.Config.Screener.Watchlist,
		app.Config.Screener.BaselineTime,
		app.Logger,
	)
	if err := sched.Start(); err != nil {
		app.Logger.Warn().Err(err).Msg("Baseline scheduler not started")
	}

	app.Logger.Info().
		Str("host", app.Config.Server.Host).
		Int("port", app.Config.Server.Port).
		Msg("Screener running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	app.Logger.Info().Msg("Shutting down")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server shutdown error")
	}
	if app.Ledger != nil {
		if err := app.Ledger.Close(); err != nil {
			app.Logger.Error().Err(err).Msg("Ledger close error")
		}
	}
	return nil
}
