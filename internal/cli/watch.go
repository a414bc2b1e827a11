package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/models"
)

var (
	watchOnce     bool
	watchSelect   string
	watchResolve  string
	watchSimulate bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the compliance alert feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.CompliancePage](ctx, a, console.KindCompliance)
		if err != nil {
			return err
		}
		if err := page.Refresh(ctx); err != nil {
			return err
		}

		if watchSelect != "" {
			if err := page.Select(models.ID(watchSelect)); err != nil {
				return err
			}
		}
		if watchResolve != "" {
			if err := page.Resolve(ctx, models.ID(watchResolve)); err != nil {
				return err
			}
			renderAction(a.out, page.Snapshot().(console.ComplianceSnapshot).Resolve)
		}
		if watchSimulate {
			if err := simulate(ctx, a.out, page); err != nil {
				return err
			}
		}

		printCompliance(a.out, page)
		if watchOnce {
			return nil
		}
		return follow(ctx, a.out, page, a.cfg.Feed.AlertsInterval/4)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print the feed once and exit")
	watchCmd.Flags().StringVar(&watchSelect, "select", "", "Focus the alert with this id")
	watchCmd.Flags().StringVar(&watchResolve, "resolve", "", "Resolve the alert with this id")
	watchCmd.Flags().BoolVar(&watchSimulate, "simulate", false, "Inject a simulated fault and follow its stages")
}

func printCompliance(w io.Writer, page *console.CompliancePage) {
	renderAlerts(w, page.Alerts().State())
	if _, ok := page.Alerts().Selected(); ok {
		renderWorkOrder(w, page.WorkOrder())
	}
}

// simulate runs the fault walkthrough, printing each stage until it settles.
func simulate(ctx context.Context, w io.Writer, page *console.CompliancePage) error {
	stages := make(chan console.Stage, 8)
	page.Simulation().OnStage(func(s console.Stage) {
		select {
		case stages <- s:
		default:
		}
	})
	if err := page.Simulate(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-stages:
			fmt.Fprintf(w, "simulation: %s\n", s.Label())
			if s.Running() {
				continue
			}
			if state := page.Simulation().State(); state.Error != "" {
				return errors.New(state.Error)
			}
			if s == console.StageDone {
				// The feed refresh runs after the final stage is published.
				return page.Refresh(ctx)
			}
			return nil
		}
	}
}

// follow reprints the feed whenever a new generation lands.
func follow(ctx context.Context, w io.Writer, page *console.CompliancePage, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := page.Alerts().State()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state := page.Alerts().State()
			if state.Generation == last.Generation && state.Error == last.Error {
				continue
			}
			last = state
			fmt.Fprintf(w, "\n%s\n", state.RefreshedAt.Local().Format(time.TimeOnly))
			printCompliance(w, page)
		}
	}
}
