package console

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/factoryos/console-sync/internal/graphview"
	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/utils"
)

// UploadDraft is the state of the ingestion dialog.
type UploadDraft struct {
	FileName   string `json:"fileName"`
	Size       int    `json:"size"`
	Target     string `json:"target"`
	ManualType string `json:"manualType"`
}

// DashboardSnapshot is the state of a dashboard page.
type DashboardSnapshot struct {
	Filters      OptionsState                       `json:"filters"`
	Stats        DetailState[models.DashboardStats] `json:"stats"`
	Graph        graphview.View                     `json:"graph"`
	Upload       ModalState                         `json:"upload"`
	UploadDraft  UploadDraft                        `json:"uploadDraft"`
	Machine      ModalState                         `json:"machine"`
	MachineDraft models.MachineForm                 `json:"machineDraft"`
}

// DashboardPage shows knowledge-graph health and hosts the ingestion and add-machine
// dialogs.
type DashboardPage struct {
	pageBase
	backend DashboardBackend
	options *OptionLoader
	stats   *Detail[struct{}, models.DashboardStats]
	graph   *graphview.Adapter
	upload  *Modal
	machine *Modal

	mu           sync.Mutex
	uploadDraft  models.Upload
	machineDraft models.MachineForm
}

// NewDashboardPage builds an unmounted dashboard page.
func NewDashboardPage(backend DashboardBackend, timings Timings, logger *slog.Logger) *DashboardPage {
	p := &DashboardPage{
		pageBase:     newPageBase(KindDashboard, logger),
		backend:      backend,
		machineDraft: models.NewMachineForm(),
	}
	p.options = newOptionLoader(backend, p.scope, p.logger)
	p.stats = newDetail("dashboard_stats", func(ctx context.Context, _ struct{}) (models.DashboardStats, error) {
		return backend.FetchDashboardStats(ctx)
	}, p.scope, p.logger)
	p.graph = graphview.NewAdapter(func(id models.ID) {
		_ = p.graph.SetActive(id)
	})
	p.upload = newModal(newAction("ingest", p.scope, p.logger), p.scope, timings.CloseDelay, p.resetUpload)
	p.machine = newModal(newAction("create_machine", p.scope, p.logger), p.scope, timings.CloseDelay, p.resetMachine)
	return p
}

// Mount loads the options, the stats and the full graph.
func (p *DashboardPage) Mount(ctx context.Context) error {
	first, err := p.beginMount()
	if err != nil || !first {
		return err
	}
	p.stats.Load(struct{}{}, true)
	p.scope.Go(p.loadGraph)
	_ = p.options.Load(ctx)
	return nil
}

func (p *DashboardPage) loadGraph(ctx context.Context) {
	g, err := p.backend.FetchGraph(ctx)
	if err != nil {
		p.logger.Warn("load graph failed", slog.Any("error", err))
		return
	}
	if p.scope.Closed() {
		return
	}
	p.graph.SetGraph(g)
}

// RefreshStats re-fetches the dashboard figures.
func (p *DashboardPage) RefreshStats() { p.stats.Load(struct{}{}, true) }

// Options exposes the machine list used as upload target.
func (p *DashboardPage) Options() *OptionLoader { return p.options }

// Graph exposes the knowledge-graph view.
func (p *DashboardPage) Graph() *graphview.Adapter { return p.graph }

// OpenUpload shows the ingestion dialog targeting the selected machine.
func (p *DashboardPage) OpenUpload() {
	p.upload.Open()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadDraft = models.Upload{Machinery: p.options.SelectedMachine(), ManualType: models.DefaultManualType}
}

// SetUploadFile attaches a document to the draft.
func (p *DashboardPage) SetUploadFile(name string, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadDraft.FileName = name
	p.uploadDraft.Content = content
}

// SetUploadTarget picks the machine the document belongs to. An empty name clears it.
func (p *DashboardPage) SetUploadTarget(machine string) error {
	if machine != "" && !p.options.State().Options.HasMachine(machine) {
		return utils.NewFieldError("ingest", "machinery", "unknown machine "+machine, ErrNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadDraft.Machinery = machine
	return nil
}

// SetManualType overrides the document type.
func (p *DashboardPage) SetManualType(manualType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadDraft.ManualType = manualType
}

// SubmitUpload sends the draft for ingestion. Without both a file and a target machine
// nothing is sent. On success the stats are refreshed.
func (p *DashboardPage) SubmitUpload(ctx context.Context) error {
	var upload models.Upload
	return p.upload.Submit(ctx, Step{
		Validate: func() error {
			p.mu.Lock()
			upload = p.uploadDraft
			p.mu.Unlock()
			if upload.FileName == "" {
				return utils.NewFieldError("ingest", "file", "choose a document to upload", ErrInvalidInput)
			}
			if upload.Machinery == "" {
				return utils.NewFieldError("ingest", "machinery", "choose the machine this document belongs to", ErrInvalidInput)
			}
			return nil
		},
		Do: func(ctx context.Context) error {
			return p.backend.Ingest(ctx, upload)
		},
		Settle: func(err error) {
			if err == nil {
				p.RefreshStats()
			}
		},
		SuccessMessage: "Upload complete.",
	})
}

// CloseUpload hides the ingestion dialog and discards the draft.
func (p *DashboardPage) CloseUpload() { p.upload.Close() }

func (p *DashboardPage) resetUpload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadDraft = models.Upload{}
}

// OpenMachine shows the add-machine dialog.
func (p *DashboardPage) OpenMachine() { p.machine.Open() }

// SetMachineForm replaces the add-machine draft. An empty type falls back to the default.
func (p *DashboardPage) SetMachineForm(form models.MachineForm) {
	if form.Type == "" {
		form.Type = models.DefaultMachineType
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.machineDraft = form
}

// SubmitMachine creates the drafted machine and reloads the machine list.
func (p *DashboardPage) SubmitMachine(ctx context.Context) error {
	var form models.MachineForm
	return p.machine.Submit(ctx, Step{
		Validate: func() error {
			p.mu.Lock()
			form = p.machineDraft
			p.mu.Unlock()
			if strings.TrimSpace(form.Name) == "" {
				return utils.NewFieldError("create machine", "name", "machine name is required", ErrInvalidInput)
			}
			return nil
		},
		Do: func(ctx context.Context) error {
			if err := p.backend.CreateMachine(ctx, form); err != nil {
				return err
			}
			if err := p.options.Reload(ctx); err != nil {
				p.logger.Warn("reload filters failed", slog.Any("error", err))
			}
			return nil
		},
		SuccessMessage: "Machine added to Knowledge Graph successfully.",
	})
}

// CloseMachine hides the add-machine dialog and discards the draft.
func (p *DashboardPage) CloseMachine() { p.machine.Close() }

func (p *DashboardPage) resetMachine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.machineDraft = models.NewMachineForm()
}

// Snapshot returns a DashboardSnapshot.
func (p *DashboardPage) Snapshot() any {
	p.mu.Lock()
	draft := UploadDraft{
		FileName:   p.uploadDraft.FileName,
		Size:       len(p.uploadDraft.Content),
		Target:     p.uploadDraft.Machinery,
		ManualType: p.uploadDraft.ManualType,
	}
	machine := p.machineDraft
	p.mu.Unlock()

	return DashboardSnapshot{
		Filters:      p.options.State(),
		Stats:        p.stats.State(),
		Graph:        p.graph.View(),
		Upload:       p.upload.State(),
		UploadDraft:  draft,
		Machine:      p.machine.State(),
		MachineDraft: machine,
	}
}
