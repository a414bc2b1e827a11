package console

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/factoryos/console-sync/internal/models"
)

// backendStub implements Backend with overridable funcs and per-method call counts.
type backendStub struct {
	mu    sync.Mutex
	calls map[string]int

	filters    func(ctx context.Context) (models.OptionSet, error)
	chat       func(ctx context.Context, req models.ChatRequest) (models.ChatReply, error)
	alerts     func(ctx context.Context) ([]models.Alert, error)
	resolve    func(ctx context.Context, id models.ID) error
	simulate   func(ctx context.Context) error
	workOrder  func(ctx context.Context, id models.ID) (models.WorkOrder, error)
	ingest     func(ctx context.Context, upload models.Upload) error
	machine    func(ctx context.Context, form models.MachineForm) error
	technician func(ctx context.Context, form models.TechnicianForm) error
	task       func(ctx context.Context, form models.TaskForm) error
	stats      func(ctx context.Context) (models.DashboardStats, error)
	graph      func(ctx context.Context) (models.TraceGraph, error)
}

func (b *backendStub) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[name]++
}

func (b *backendStub) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *backendStub) FetchFilters(ctx context.Context) (models.OptionSet, error) {
	b.record("filters")
	if b.filters == nil {
		return models.OptionSet{}, nil
	}
	return b.filters(ctx)
}

func (b *backendStub) SendChat(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
	b.record("chat")
	if b.chat == nil {
		return models.ChatReply{Answer: "ok"}, nil
	}
	return b.chat(ctx, req)
}

func (b *backendStub) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	b.record("alerts")
	if b.alerts == nil {
		return nil, nil
	}
	return b.alerts(ctx)
}

func (b *backendStub) ResolveAlert(ctx context.Context, id models.ID) error {
	b.record("resolve")
	if b.resolve == nil {
		return nil
	}
	return b.resolve(ctx, id)
}

func (b *backendStub) TriggerSimulation(ctx context.Context) error {
	b.record("simulate")
	if b.simulate == nil {
		return nil
	}
	return b.simulate(ctx)
}

func (b *backendStub) FetchWorkOrder(ctx context.Context, id models.ID) (models.WorkOrder, error) {
	b.record("work_order")
	if b.workOrder == nil {
		return models.WorkOrder{ID: id, Status: "Open"}, nil
	}
	return b.workOrder(ctx, id)
}

func (b *backendStub) Ingest(ctx context.Context, upload models.Upload) error {
	b.record("ingest")
	if b.ingest == nil {
		return nil
	}
	return b.ingest(ctx, upload)
}

func (b *backendStub) CreateMachine(ctx context.Context, form models.MachineForm) error {
	b.record("machine")
	if b.machine == nil {
		return nil
	}
	return b.machine(ctx, form)
}

func (b *backendStub) CreateTechnician(ctx context.Context, form models.TechnicianForm) error {
	b.record("technician")
	if b.technician == nil {
		return nil
	}
	return b.technician(ctx, form)
}

func (b *backendStub) CreateTask(ctx context.Context, form models.TaskForm) error {
	b.record("task")
	if b.task == nil {
		return nil
	}
	return b.task(ctx, form)
}

func (b *backendStub) FetchDashboardStats(ctx context.Context) (models.DashboardStats, error) {
	b.record("stats")
	if b.stats == nil {
		return models.DashboardStats{}, nil
	}
	return b.stats(ctx)
}

func (b *backendStub) FetchGraph(ctx context.Context) (models.TraceGraph, error) {
	b.record("graph")
	if b.graph == nil {
		return models.TraceGraph{}, nil
	}
	return b.graph(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTimings() Timings {
	return Timings{PollInterval: time.Hour, CloseDelay: 0, StageDelay: time.Millisecond}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func alert(id string) models.Alert {
	return models.Alert{ID: models.ID(id), Title: "alert " + id, Status: models.AlertOpen, Technician: "T. Test"}
}

func alertIDs(items []models.Alert) []models.ID {
	ids := make([]models.ID, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	return ids
}
