package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"options-screener/pkg/utils"
)

// newAlertsCmd lists the alert ledger for a trading day.
func newAlertsCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List recorded alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Ledger == nil {
				return fmt.Errorf("alert ledger unavailable")
			}

			day := time.Now().In(utils.IndiaLocation)
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, utils.IndiaLocation)
				if err != nil {
					return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
				}
				day = parsed
			}

			records, err := app.Ledger.QueryByDate(context.Background(), day)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("No alerts on %s\n", day.Format("2006-01-02"))
				return nil
			}

			fmt.Printf("%-6s %-12s %-9s %10s %8s  %-18s %s\n",
				"ID", "SYMBOL", "TIME", "SPOT", "MOVE%", "SIGNAL", "NOTE")
			for _, r := range records {
				fmt.Printf("%-6d %-12s %-9s %10s %8s  %-18s %s\n",
					r.ID,
					r.Symbol,
					r.Time.In(utils.IndiaLocation).Format("15:04:05"),
					fmtFloat(r.Spot, "%.2f"),
					fmtFloat(r.MovePct, "%.2f"),
					r.Signal,
					r.ErrorNote,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "trading date (YYYY-MM-DD, IST, default today)")
	return cmd
}

func fmtFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
