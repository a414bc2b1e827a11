package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/console"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge-graph figures",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Backend.Timeout+time.Second)
		defer cancel()
		page, err := mount[*console.DashboardPage](ctx, a, console.KindDashboard)
		if err != nil {
			return err
		}

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			stats := page.Snapshot().(console.DashboardSnapshot).Stats
			if !stats.Loading {
				if stats.Value == nil {
					return errors.New("dashboard stats are unavailable")
				}
				renderStats(a.out, *stats.Value)
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	},
}
