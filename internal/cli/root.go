// Package cli provides the command-line interface for the screener.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-screener/internal/baseline"
	"options-screener/internal/broker"
	"options-screener/internal/catalog"
	"options-screener/internal/config"
	"options-screener/internal/logging"
	"options-screener/internal/models"
	"options-screener/internal/notify"
	"options-screener/internal/quotes"
	"options-screener/internal/screener"
	"options-screener/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Provider broker.MarketDataProvider

	Catalog    *catalog.Cache
	Resolver   *catalog.Resolver
	Selector   *catalog.Selector
	Aggregator *quotes.Aggregator
	Classifier *screener.Classifier
	Baseline   *baseline.Store
	Capturer   *baseline.Capturer
	Engine     *screener.Engine
	Ledger     store.AlertLedger
	Notifier   notify.Notifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	provider := broker.NewZerodhaProvider(broker.ZerodhaConfig{
		APIKey:    cfg.Credentials.Kite.APIKey,
		APISecret: cfg.Credentials.Kite.APISecret,
		UserID:    cfg.Credentials.Kite.UserID,
		Timeout:   cfg.Screener.ProviderTimeout,
	})
	app.Provider = provider
	if provider.IsAuthenticated() {
		logger.Debug().Msg("Kite session restored")
	}

	app.Catalog = catalog.NewCache(app.Provider, models.Exchange(cfg.Screener.Exchange), logger)
	app.Resolver = catalog.NewResolver(app.Catalog, cfg.Screener.AllowExpiredExpiry)
	app.Selector = catalog.NewSelector(app.Catalog)
	app.Aggregator = quotes.NewAggregator(app.Provider, cfg.Screener.QuoteBatchSize, logger)
	app.Classifier = screener.NewClassifier(app.Provider, app.Catalog, logger)

	app.Baseline = baseline.NewStore(filepath.Join(config.DefaultConfigDir(), "baseline.json"), logger)
	app.Capturer = baseline.NewCapturer(
		app.Baseline, app.Resolver, app.Selector, app.Aggregator,
		cfg.Screener.RiskFreeRate, cfg.Screener.DividendYield, logger,
	)

	ledger, err := store.NewSQLiteLedger(filepath.Join(config.DefaultConfigDir(), "alerts.db"))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open alert ledger, some features may be unavailable")
	} else {
		app.Ledger = ledger
	}

	app.Notifier = notify.NewMultiNotifier(cfg.Notifications)

	if app.Ledger != nil {
		app.Engine = screener.NewEngine(
			app.Resolver, app.Selector, app.Aggregator, app.Classifier,
			screener.NewComposer(cfg.Screener.IVThreshold),
			app.Baseline, app.Ledger, app.Notifier,
			screener.Options{
				StrikeWidth:   cfg.Screener.StrikeWidth,
				RiskFreeRate:  cfg.Screener.RiskFreeRate,
				DividendYield: cfg.Screener.DividendYield,
			},
			logger,
		)
	}

	rootCmd := &cobra.Command{
		Use:     "screener",
		Short:   "Options screener signal engine",
		Long:    "Screens near-term option chains on inbound market events and records composite trading signals.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newBaselineCmd(app))
	rootCmd.AddCommand(newAlertsCmd(app))
	rootCmd.AddCommand(newLoginCmd(app))

	return rootCmd
}
