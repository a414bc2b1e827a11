package console

import (
	"context"
	"log/slog"

	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/utils"
)

// ComplianceSnapshot is the state of a compliance page.
type ComplianceSnapshot struct {
	Alerts     FeedState[models.Alert]       `json:"alerts"`
	WorkOrder  DetailState[models.WorkOrder] `json:"workOrder"`
	Resolve    ActionState                   `json:"resolve"`
	Simulation SimulationState               `json:"simulation"`
}

// CompliancePage polls the alert feed and follows the selected alert's work order.
type CompliancePage struct {
	pageBase
	backend    ComplianceBackend
	alerts     *Feed[models.Alert, models.ID]
	workOrder  *Detail[models.ID, models.WorkOrder]
	resolve    *Action
	simulation *Simulation

	// Guarded by the feed lock: only touched from OnSelect.
	focusID      models.ID
	focusWO      models.ID
	focusPresent bool
}

// NewCompliancePage builds an unmounted compliance page.
func NewCompliancePage(backend ComplianceBackend, timings Timings, logger *slog.Logger) *CompliancePage {
	p := &CompliancePage{pageBase: newPageBase(KindCompliance, logger), backend: backend}
	p.workOrder = newDetail("work_order", backend.FetchWorkOrder, p.scope, p.logger)
	p.alerts = newFeed(FeedOptions[models.Alert, models.ID]{
		Name:       "alerts",
		Interval:   timings.PollInterval,
		Fetch:      backend.ListAlerts,
		Key:        func(a models.Alert) models.ID { return a.ID },
		Enrich:     EnrichAlert,
		AutoSelect: true,
		OnSelect:   p.follow,
	}, p.scope, p.logger)
	p.resolve = newAction("resolve", p.scope, p.logger)
	p.simulation = newSimulation(backend.TriggerSimulation, func(ctx context.Context) {
		_ = p.alerts.Refresh(ctx)
	}, timings.StageDelay, p.scope, p.logger)
	return p
}

// follow reloads the work order when the selected alert or its work order link changes.
func (p *CompliancePage) follow(alert models.Alert, ok bool) {
	if !ok {
		if p.focusPresent {
			p.focusPresent = false
			p.focusID, p.focusWO = "", ""
			p.workOrder.Load("", false)
		}
		return
	}
	if p.focusPresent && alert.ID == p.focusID && alert.WorkOrderID == p.focusWO {
		return
	}
	p.focusPresent = true
	p.focusID, p.focusWO = alert.ID, alert.WorkOrderID
	p.workOrder.Load(alert.WorkOrderID, !alert.WorkOrderID.IsZero())
}

// OnRefresh registers fn to observe every alert refresh outcome. Call before Mount.
func (p *CompliancePage) OnRefresh(fn func(err error)) {
	p.alerts.opts.OnRefresh = fn
}

// Mount starts polling.
func (p *CompliancePage) Mount(ctx context.Context) error {
	first, err := p.beginMount()
	if err != nil || !first {
		return err
	}
	p.alerts.Start()
	return nil
}

// Alerts exposes the feed.
func (p *CompliancePage) Alerts() *Feed[models.Alert, models.ID] { return p.alerts }

// Refresh polls once outside the timer.
func (p *CompliancePage) Refresh(ctx context.Context) error { return p.alerts.Refresh(ctx) }

// Select focuses an alert.
func (p *CompliancePage) Select(id models.ID) error { return p.alerts.Select(id) }

// Resolve marks an alert resolved. The status flips right away and reverts if the
// request fails.
func (p *CompliancePage) Resolve(ctx context.Context, id models.ID) error {
	var settle func(confirmed bool)
	return p.resolve.Run(ctx, Step{
		Validate: func() error {
			alert, ok := p.alerts.Item(id)
			if !ok {
				return utils.NewAppError("resolve alert", "alert "+string(id)+" is not listed", ErrNotFound)
			}
			if alert.Status == models.AlertResolved {
				return utils.NewAppError("resolve alert", "alert "+string(id)+" is already resolved", ErrInvalidInput)
			}
			return nil
		},
		Optimistic: func() {
			settle, _ = p.alerts.Patch(id, func(a models.Alert) models.Alert {
				a.Status = models.AlertResolved
				return a
			})
		},
		Do: func(ctx context.Context) error {
			return p.backend.ResolveAlert(ctx, id)
		},
		Settle: func(err error) {
			if settle != nil {
				settle(err == nil)
			}
		},
		SuccessMessage: "Alert " + string(id) + " resolved.",
	})
}

// Simulate injects a fault and walks the progress stages, refreshing the feed at the end.
func (p *CompliancePage) Simulate() error { return p.simulation.Start() }

// Simulation exposes the simulated fault walkthrough.
func (p *CompliancePage) Simulation() *Simulation { return p.simulation }

// WorkOrder returns the detail pane.
func (p *CompliancePage) WorkOrder() DetailState[models.WorkOrder] { return p.workOrder.State() }

// Snapshot returns a ComplianceSnapshot.
func (p *CompliancePage) Snapshot() any {
	return ComplianceSnapshot{
		Alerts:     p.alerts.State(),
		WorkOrder:  p.workOrder.State(),
		Resolve:    p.resolve.State(),
		Simulation: p.simulation.State(),
	}
}
