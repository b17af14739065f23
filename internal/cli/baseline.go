package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// newBaselineCmd groups the baseline subcommands.
func newBaselineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the opening IV/OI baseline",
	}
	cmd.AddCommand(newBaselineCaptureCmd(app))
	cmd.AddCommand(newBaselineShowCmd(app))
	return cmd
}

func newBaselineCaptureCmd(app *App) *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the baseline snapshot now",
		Long: `Resolves the ATM call and put for each watched symbol, solves their
implied volatility, and overwrites the persisted baseline mapping.
Normally run by the scheduler at session open; invoke manually to
re-seed after a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			watchlist := symbols
			if len(watchlist) == 0 {
				watchlist = app.Config.Screener.Watchlist
			}
			if len(watchlist) == 0 {
				return fmt.Errorf("no symbols: set screener.watchlist or pass --symbol")
			}
			if !app.Provider.IsAuthenticated() {
				return fmt.Errorf("not authenticated, run 'screener login' first")
			}

			if err := app.Capturer.Capture(context.Background(), watchlist); err != nil {
				return fmt.Errorf("baseline capture failed: %w", err)
			}
			fmt.Printf("Baseline captured for %d symbol(s)\n", len(watchlist))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&symbols, "symbol", "s", nil, "symbols to capture (default: configured watchlist)")
	return cmd
}

func newBaselineShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Baseline.Load()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No baseline captured yet")
				return nil
			}

			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Printf("%-16s %10s %12s  %s\n", "KEY", "IV", "OI", "CAPTURED")
			for _, k := range keys {
				e := entries[k]
				fmt.Printf("%-16s %10.4f %12d  %s\n", k, e.IV, e.OI, e.CapturedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
