package console

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/utils"
)

const (
	TechnicianAddedText = "Technician added to Knowledge Graph successfully."
	TaskAddedText       = "Task added to Knowledge Graph successfully."
)

// ResourceSnapshot is the state of a resource page.
type ResourceSnapshot struct {
	Filters          OptionsState          `json:"filters"`
	Technician       models.TechnicianForm `json:"technician"`
	TechnicianStatus ActionState           `json:"technicianStatus"`
	Task             models.TaskForm       `json:"task"`
	TaskStatus       ActionState           `json:"taskStatus"`
}

// ResourcePage adds technicians and tasks to the knowledge graph.
type ResourcePage struct {
	pageBase
	backend    ResourceBackend
	options    *OptionLoader
	technician *Action
	task       *Action

	mu       sync.Mutex
	techForm models.TechnicianForm
	taskForm models.TaskForm
}

// NewResourcePage builds an unmounted resource page.
func NewResourcePage(backend ResourceBackend, logger *slog.Logger) *ResourcePage {
	p := &ResourcePage{
		pageBase: newPageBase(KindResources, logger),
		backend:  backend,
		techForm: models.NewTechnicianForm(),
		taskForm: models.NewTaskForm(""),
	}
	p.options = newOptionLoader(backend, p.scope, p.logger)
	p.technician = newAction("create_technician", p.scope, p.logger)
	p.task = newAction("create_task", p.scope, p.logger)
	return p
}

// Mount loads the machine list and targets the task draft at the first machine.
func (p *ResourcePage) Mount(ctx context.Context) error {
	first, err := p.beginMount()
	if err != nil || !first {
		return err
	}
	_ = p.options.Load(ctx)

	machine := p.options.SelectedMachine()
	p.mu.Lock()
	if p.taskForm.TargetMachine == "" {
		p.taskForm.TargetMachine = machine
	}
	p.mu.Unlock()
	return nil
}

// Options exposes the machine list.
func (p *ResourcePage) Options() *OptionLoader { return p.options }

// SetTechnician replaces the technician draft, keeping defaults for blank fields.
func (p *ResourcePage) SetTechnician(form models.TechnicianForm) {
	defaults := models.NewTechnicianForm()
	if form.Role == "" {
		form.Role = defaults.Role
	}
	if form.CertificationLevel == "" {
		form.CertificationLevel = defaults.CertificationLevel
	}
	if form.Status == "" {
		form.Status = defaults.Status
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.techForm = form
}

// SetTask replaces the task draft, keeping defaults for blank fields.
func (p *ResourcePage) SetTask(form models.TaskForm) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defaults := models.NewTaskForm(p.taskForm.TargetMachine)
	if form.TargetMachine == "" {
		form.TargetMachine = defaults.TargetMachine
	}
	if form.RequiredCertification == "" {
		form.RequiredCertification = defaults.RequiredCertification
	}
	if form.Priority == "" {
		form.Priority = defaults.Priority
	}
	p.taskForm = form
}

// SubmitTechnician creates the drafted technician. On success the name is cleared and
// the other fields are kept for the next entry.
func (p *ResourcePage) SubmitTechnician(ctx context.Context) error {
	var form models.TechnicianForm
	return p.technician.Run(ctx, Step{
		Validate: func() error {
			p.mu.Lock()
			form = p.techForm
			p.mu.Unlock()
			if strings.TrimSpace(form.Name) == "" {
				return utils.NewFieldError("create technician", "name", "technician name is required", ErrInvalidInput)
			}
			return nil
		},
		Do: func(ctx context.Context) error {
			return p.backend.CreateTechnician(ctx, form)
		},
		Settle: func(err error) {
			if err != nil {
				return
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			p.techForm.Name = ""
		},
		SuccessMessage: TechnicianAddedText,
	})
}

// SubmitTask creates the drafted task. On success the title and description are cleared.
func (p *ResourcePage) SubmitTask(ctx context.Context) error {
	var form models.TaskForm
	return p.task.Run(ctx, Step{
		Validate: func() error {
			p.mu.Lock()
			form = p.taskForm
			p.mu.Unlock()
			if strings.TrimSpace(form.Title) == "" {
				return utils.NewFieldError("create task", "title", "task title is required", ErrInvalidInput)
			}
			if form.TargetMachine == "" {
				return utils.NewFieldError("create task", "target_machine", "choose a target machine", ErrInvalidInput)
			}
			return nil
		},
		Do: func(ctx context.Context) error {
			return p.backend.CreateTask(ctx, form)
		},
		Settle: func(err error) {
			if err != nil {
				return
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			p.taskForm.Title = ""
			p.taskForm.Description = ""
		},
		SuccessMessage: TaskAddedText,
	})
}

// Snapshot returns a ResourceSnapshot.
func (p *ResourcePage) Snapshot() any {
	p.mu.Lock()
	tech, task := p.techForm, p.taskForm
	p.mu.Unlock()
	return ResourceSnapshot{
		Filters:          p.options.State(),
		Technician:       tech,
		TechnicianStatus: p.technician.State(),
		Task:             task,
		TaskStatus:       p.task.State(),
	}
}
