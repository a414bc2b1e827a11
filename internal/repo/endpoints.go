package repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/factoryos/console-sync/internal/models"
)

const (
	pathFilters    = "/api/agent/filters"
	pathChat       = "/api/agent/chat"
	pathAlerts     = "/api/compliance/alerts"
	pathResolve    = "/api/compliance/resolve/"
	pathSimulation = "/api/simulation/log"
	pathWorkOrder  = "/api/workorder/"
	pathIngest     = "/api/ingest"
	pathMachine    = "/api/resources/machine"
	pathTechnician = "/api/resources/technician"
	pathTask       = "/api/resources/task"
	pathStats      = "/api/dashboard/stats"
	pathGraph      = "/api/graph/visualize"
)

// FetchFilters loads the machine and source option lists. Absent lists decode as empty.
func (c *FactoryClient) FetchFilters(ctx context.Context) (models.OptionSet, error) {
	var response models.OptionSet
	if err := c.Do(ctx, EndpointFilters, http.MethodGet, pathFilters, nil, &response); err != nil {
		return models.OptionSet{}, err
	}
	return models.OptionSet{
		Machines: nonNil(response.Machines),
		Sources:  nonNil(response.Sources),
	}, nil
}

// SendChat posts a query to the agent. The answer field is required.
func (c *FactoryClient) SendChat(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
	req.SelectedSources = nonNil(req.SelectedSources)

	var response struct {
		Answer    *string           `json:"answer"`
		Trace     models.TraceGraph `json:"trace"`
		Citations []models.Citation `json:"citations"`
	}
	if err := c.Do(ctx, EndpointChat, http.MethodPost, pathChat, req, &response); err != nil {
		return models.ChatReply{}, err
	}
	if response.Answer == nil {
		return models.ChatReply{}, decodeFailure(EndpointChat, http.MethodPost, pathChat, errors.New("missing answer"))
	}

	citations := make([]models.Citation, 0, len(response.Citations))
	for _, citation := range response.Citations {
		citation.Confidence = clampUnit(citation.Confidence)
		citations = append(citations, citation)
	}
	return models.ChatReply{Answer: *response.Answer, Trace: response.Trace, Citations: citations}, nil
}

// ListAlerts fetches the full alert collection. Every alert must carry an id.
func (c *FactoryClient) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.Do(ctx, EndpointAlerts, http.MethodGet, pathAlerts, nil, &alerts); err != nil {
		return nil, err
	}
	for i, alert := range alerts {
		if alert.ID.IsZero() {
			return nil, decodeFailure(EndpointAlerts, http.MethodGet, pathAlerts, fmt.Errorf("alert at index %d has no id", i))
		}
	}
	return nonNil(alerts), nil
}

// ResolveAlert marks an alert resolved on the backend.
func (c *FactoryClient) ResolveAlert(ctx context.Context, id models.ID) error {
	segment, err := idSegment("resolve alert", id)
	if err != nil {
		return err
	}
	return c.Do(ctx, EndpointResolve, http.MethodPost, pathResolve+segment, nil, nil)
}

// idSegment escapes id for use as a single path segment.
func idSegment(op string, id models.ID) (string, error) {
	switch strings.TrimSpace(id.String()) {
	case "":
		return "", fmt.Errorf("%s: id is required", op)
	case ".", "..":
		return "", fmt.Errorf("%s: invalid id %q", op, id)
	}
	return url.PathEscape(id.String()), nil
}

// TriggerSimulation injects a simulated fault log.
func (c *FactoryClient) TriggerSimulation(ctx context.Context) error {
	return c.Do(ctx, EndpointSimulation, http.MethodPost, pathSimulation, nil, nil)
}

// FetchWorkOrder loads the work order with the given id.
func (c *FactoryClient) FetchWorkOrder(ctx context.Context, id models.ID) (models.WorkOrder, error) {
	segment, err := idSegment("fetch work order", id)
	if err != nil {
		return models.WorkOrder{}, err
	}
	p := pathWorkOrder + segment
	var order models.WorkOrder
	if err := c.Do(ctx, EndpointWorkOrder, http.MethodGet, p, nil, &order); err != nil {
		return models.WorkOrder{}, err
	}
	if order.ID.IsZero() {
		order.ID = id
	}
	return order, nil
}

// Ingest uploads a document and links it to a machine.
func (c *FactoryClient) Ingest(ctx context.Context, upload models.Upload) error {
	manualType := upload.ManualType
	if strings.TrimSpace(manualType) == "" {
		manualType = models.DefaultManualType
	}
	body := multipartBody{
		fileField: "file",
		fileName:  upload.FileName,
		content:   upload.Content,
		fields: [][2]string{
			{"machinery", upload.Machinery},
			{"manual_type", manualType},
		},
	}
	return c.Do(ctx, EndpointIngest, http.MethodPost, pathIngest, body, nil)
}

// CreateMachine adds a machine node.
func (c *FactoryClient) CreateMachine(ctx context.Context, form models.MachineForm) error {
	return c.Do(ctx, EndpointMachine, http.MethodPost, pathMachine, form, nil)
}

// CreateTechnician adds a technician node.
func (c *FactoryClient) CreateTechnician(ctx context.Context, form models.TechnicianForm) error {
	return c.Do(ctx, EndpointTechnician, http.MethodPost, pathTechnician, form, nil)
}

// CreateTask adds an operational task.
func (c *FactoryClient) CreateTask(ctx context.Context, form models.TaskForm) error {
	return c.Do(ctx, EndpointTask, http.MethodPost, pathTask, form, nil)
}

// FetchDashboardStats loads the dashboard header figures.
func (c *FactoryClient) FetchDashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.Do(ctx, EndpointStats, http.MethodGet, pathStats, nil, &stats); err != nil {
		return models.DashboardStats{}, err
	}
	stats.DataSources = nonNil(stats.DataSources)
	return stats, nil
}

// FetchGraph loads the full knowledge-graph topology.
func (c *FactoryClient) FetchGraph(ctx context.Context) (models.TraceGraph, error) {
	var graph models.TraceGraph
	if err := c.Do(ctx, EndpointGraph, http.MethodGet, pathGraph, nil, &graph); err != nil {
		return models.TraceGraph{}, err
	}
	return graph, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
