package console

import (
	"context"

	"github.com/factoryos/console-sync/internal/models"
)

// OptionsSource loads filter option lists.
type OptionsSource interface {
	FetchFilters(ctx context.Context) (models.OptionSet, error)
}

// ChatBackend answers agent queries.
type ChatBackend interface {
	OptionsSource
	SendChat(ctx context.Context, req models.ChatRequest) (models.ChatReply, error)
}

// ComplianceBackend serves the alert feed and its actions.
type ComplianceBackend interface {
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, id models.ID) error
	TriggerSimulation(ctx context.Context) error
	FetchWorkOrder(ctx context.Context, id models.ID) (models.WorkOrder, error)
}

// DashboardBackend serves the dashboard figures, graph and ingestion.
type DashboardBackend interface {
	OptionsSource
	FetchDashboardStats(ctx context.Context) (models.DashboardStats, error)
	FetchGraph(ctx context.Context) (models.TraceGraph, error)
	Ingest(ctx context.Context, upload models.Upload) error
	CreateMachine(ctx context.Context, form models.MachineForm) error
}

// ResourceBackend creates technicians and tasks.
type ResourceBackend interface {
	OptionsSource
	CreateTechnician(ctx context.Context, form models.TechnicianForm) error
	CreateTask(ctx context.Context, form models.TaskForm) error
}

// Backend is the full HTTP contract consumed by the console.
type Backend interface {
	ChatBackend
	ComplianceBackend
	DashboardBackend
	ResourceBackend
}
