// Package mockfactory serves an in-memory FactoryOS backend for local development and
// tests.
package mockfactory

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type alert struct {
	ID             int    `json:"id"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Machine        string `json:"machine"`
	Timestamp      string `json:"timestamp"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	Technician     string `json:"technician,omitempty"`
	Status         string `json:"status"`
	WorkOrderID    string `json:"work_order_id,omitempty"`
}

type workOrder struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
	DueDate  string `json:"due_date"`
}

type node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Role  string `json:"role,omitempty"`
}

type link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Backend is the mutable in-memory state behind the mock API.
type Backend struct {
	mu          sync.Mutex
	machines    []string
	sources     []string
	alerts      []alert
	workOrders  map[string]workOrder
	technicians []map[string]string
	tasks       []map[string]string
	manuals     int
	nextAlert   int
	nextOrder   int
	now         func() time.Time
}

// New returns a backend seeded with a small plant.
func New() *Backend {
	b := &Backend{
		machines:   []string{"Kuka-200 Welder", "Conveyor Belt C2", "Hydraulic Press P1"},
		sources:    []string{"Kuka-200 Service Manual", "Safety Protocol 7B", "Conveyor Maintenance Log"},
		workOrders: make(map[string]workOrder),
		nextAlert:  1,
		nextOrder:  1001,
		now:        time.Now,
	}
	b.addAlert("Critical", "Technician Certification Mismatch", "Kuka-200 Welder",
		"Assigned technician holds a Level 2 certification; protocol 7B requires Level 3.",
		"Reassign the task to the nearest available Level 3 technician.", "J. Doe", true)
	b.addAlert("High", "Overdue Lubrication", "Conveyor Belt C2",
		"Scheduled lubrication is 3 days overdue.",
		"Schedule lubrication during the next shift change.", "", false)
	return b
}

// addAlert appends an open alert. Callers hold b.mu or own b exclusively.
func (b *Backend) addAlert(severity, title, machine, description, recommendation, technician string, withOrder bool) alert {
	a := alert{
		ID:             b.nextAlert,
		Severity:       severity,
		Title:          title,
		Machine:        machine,
		Timestamp:      b.now().UTC().Format(time.RFC3339),
		Description:    description,
		Recommendation: recommendation,
		Technician:     technician,
		Status:         "Open",
	}
	b.nextAlert++
	if withOrder {
		wo := workOrder{
			ID:       fmt.Sprintf("WO-%d", b.nextOrder),
			Status:   "Scheduled",
			Priority: severity,
			Type:     "Corrective",
			DueDate:  b.now().Add(48 * time.Hour).UTC().Format("2006-01-02"),
		}
		b.nextOrder++
		b.workOrders[wo.ID] = wo
		a.WorkOrderID = wo.ID
	}
	b.alerts = append(b.alerts, a)
	return a
}

// Handler returns the HTTP API.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/agent/filters", b.filters)
	r.Post("/api/agent/chat", b.chat)
	r.Get("/api/compliance/alerts", b.listAlerts)
	r.Post("/api/compliance/resolve/{id}", b.resolve)
	r.Post("/api/simulation/log", b.simulate)
	r.Get("/api/workorder/{id}", b.workOrder)
	r.Post("/api/ingest", b.ingest)
	r.Post("/api/resources/machine", b.createMachine)
	r.Post("/api/resources/technician", b.createTechnician)
	r.Post("/api/resources/task", b.createTask)
	r.Get("/api/dashboard/stats", b.stats)
	r.Get("/api/graph/visualize", b.graph)
	return r
}

func (b *Backend) filters(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"machinery": b.machines, "sources": b.sources})
}

func (b *Backend) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query           string   `json:"query"`
		SelectedSources []string `json:"selected_sources"`
		SelectedMachine string   `json:"selected_machine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid chat request")
		return
	}

	nodes := []node{{ID: "query", Label: req.Query, Role: "start"}}
	links := []link{}
	citations := []map[string]any{}
	if req.SelectedMachine != "" {
		nodes = append(nodes, node{ID: "machine", Label: req.SelectedMachine, Role: "knowledge"})
		links = append(links, link{Source: "query", Target: "machine"})
	}
	for i, source := range req.SelectedSources {
		id := fmt.Sprintf("source-%d", i+1)
		nodes = append(nodes, node{ID: id, Label: source, Role: "source"})
		links = append(links, link{Source: "query", Target: id})
		page := i + 1
		citations = append(citations, map[string]any{
			"id":          fmt.Sprintf("cite-%d", i+1),
			"node_id":     id,
			"source_name": source,
			"snippet":     "Refer to section " + strconv.Itoa(page) + " for " + req.SelectedMachine + ".",
			"confidence":  0.9 - 0.1*float64(i),
			"page_number": page,
		})
	}

	answer := fmt.Sprintf("Based on %d source(s), **%s** is operating within tolerance.", len(req.SelectedSources), req.SelectedMachine)
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":    answer,
		"trace":     map[string]any{"nodes": nodes, "links": links},
		"citations": citations,
	})
}

func (b *Backend) listAlerts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.alerts)
}

func (b *Backend) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "alert not found")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.alerts {
		if b.alerts[i].ID == id {
			b.alerts[i].Status = "Resolved"
			writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "alert not found")
}

func (b *Backend) simulate(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	machine := "Hydraulic Press P1"
	if len(b.machines) > 0 {
		machine = b.machines[len(b.alerts)%len(b.machines)]
	}
	a := b.addAlert("Critical", "Pressure Spike Detected", machine,
		"Hydraulic pressure exceeded the safe operating limit.",
		"Stop the line and inspect the relief valve.", "", true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "injected", "alert_id": a.ID})
}

func (b *Backend) workOrder(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wo, ok := b.workOrders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "work order not found")
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (b *Backend) ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read file")
		return
	}
	machine := r.FormValue("machinery")
	if machine == "" {
		writeDetail(w, http.StatusBadRequest, "machinery is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.manuals++
	name := strings.TrimSuffix(header.Filename, ".pdf")
	if !contains(b.sources, name) {
		b.sources = append(b.sources, name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ingested", "manual_type": r.FormValue("manual_type")})
}

func (b *Backend) createMachine(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req["name"]) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if contains(b.machines, req["name"]) {
		writeDetail(w, http.StatusConflict, "machine already exists")
		return
	}
	b.machines = append(b.machines, req["name"])
	writeJSON(w, http.StatusOK, map[string]string{"status": "created"})
}

func (b *Backend) createTechnician(w http.ResponseWriter, r *http.Request) {
	b.createResource(w, r, "name", &b.technicians)
}

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	b.createResource(w, r, "title", &b.tasks)
}

func (b *Backend) createResource(w http.ResponseWriter, r *http.Request, required string, into *[]map[string]string) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req[required]) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, required+" is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	*into = append(*into, req)
	writeJSON(w, http.StatusOK, map[string]string{"status": "created"})
}

func (b *Backend) stats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"active_nodes":      len(b.machines) + len(b.sources) + len(b.technicians) + len(b.tasks),
		"uptime":            "99.9%",
		"manuals_processed": b.manuals,
		"vector_speed":      "12ms",
		"data_sources":      b.sources,
	})
}

func (b *Backend) graph(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	nodes := []node{}
	links := []link{}
	for i, m := range b.machines {
		nodes = append(nodes, node{ID: fmt.Sprintf("m%d", i), Label: m, Role: "knowledge"})
	}
	for i, s := range b.sources {
		id := fmt.Sprintf("s%d", i)
		nodes = append(nodes, node{ID: id, Label: s, Role: "source"})
		if len(b.machines) > 0 {
			links = append(links, link{Source: id, Target: fmt.Sprintf("m%d", i%len(b.machines))})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "links": links})
}

// Counts reports how many technicians, tasks and manuals were created.
func (b *Backend) Counts() (technicians, tasks, manuals int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.technicians), len(b.tasks), b.manuals
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
