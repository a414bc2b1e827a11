package mockfactory

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/repo"
)

func newClient(t *testing.T) (*repo.FactoryClient, *Backend) {
	t.Helper()
	backend := New()
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)
	return repo.NewFactoryClient(server.URL, 0, nil), backend
}

func TestContractRoundTrip(t *testing.T) {
	client, backend := newClient(t)
	ctx := context.Background()

	options, err := client.FetchFilters(ctx)
	if err != nil || len(options.Machines) == 0 || len(options.Sources) == 0 {
		t.Fatalf("filters: %+v %v", options, err)
	}

	reply, err := client.SendChat(ctx, models.ChatRequest{Query: "status?", SelectedSources: options.Sources[:1], SelectedMachine: options.Machines[0]})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Answer == "" || len(reply.Citations) != 1 || reply.Trace.Empty() {
		t.Fatalf("unexpected reply %+v", reply)
	}

	alerts, err := client.ListAlerts(ctx)
	if err != nil || len(alerts) != 2 {
		t.Fatalf("alerts: %v %v", alerts, err)
	}
	if alerts[0].ID != "1" || alerts[0].WorkOrderID.IsZero() {
		t.Fatalf("expected numeric id normalised and a linked work order, got %+v", alerts[0])
	}
	wo, err := client.FetchWorkOrder(ctx, alerts[0].WorkOrderID)
	if err != nil || wo.ID != alerts[0].WorkOrderID {
		t.Fatalf("work order: %+v %v", wo, err)
	}
	if err := client.ResolveAlert(ctx, alerts[0].ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := client.ResolveAlert(ctx, "999"); repo.StatusCode(err) != 404 {
		t.Fatalf("expected 404 for unknown alert, got %v", err)
	}

	if err := client.TriggerSimulation(ctx); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	alerts, _ = client.ListAlerts(ctx)
	if len(alerts) != 3 || alerts[0].Status != models.AlertResolved {
		t.Fatalf("unexpected alerts after simulation %+v", alerts)
	}

	if err := client.Ingest(ctx, models.Upload{FileName: "manual.pdf", Content: []byte("%PDF"), Machinery: options.Machines[0]}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := client.CreateMachine(ctx, models.MachineForm{Name: "Lathe L4", Type: "General"}); err != nil {
		t.Fatalf("create machine: %v", err)
	}
	if err := client.CreateMachine(ctx, models.MachineForm{Name: "Lathe L4"}); repo.StatusCode(err) != 409 {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := client.CreateTechnician(ctx, models.NewTechnicianForm()); repo.StatusCode(err) != 422 {
		t.Fatalf("expected missing name rejection, got %v", err)
	}
	tech := models.NewTechnicianForm()
	tech.Name = "R. Kim"
	if err := client.CreateTechnician(ctx, tech); err != nil {
		t.Fatalf("create technician: %v", err)
	}
	task := models.NewTaskForm(options.Machines[0])
	task.Title = "Replace belt"
	if err := client.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	stats, err := client.FetchDashboardStats(ctx)
	if err != nil || stats.ManualsProcessed != 1 || stats.Uptime == "" {
		t.Fatalf("stats: %+v %v", stats, err)
	}
	graph, err := client.FetchGraph(ctx)
	if err != nil || graph.Empty() {
		t.Fatalf("graph: %+v %v", graph, err)
	}

	technicians, tasks, manuals := backend.Counts()
	if technicians != 1 || tasks != 1 || manuals != 1 {
		t.Fatalf("unexpected counts %d %d %d", technicians, tasks, manuals)
	}
}
