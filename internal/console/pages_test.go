package console

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/factoryos/console-sync/internal/models"
)

func TestNewPageKinds(t *testing.T) {
	for _, kind := range Kinds() {
		page, err := NewPage(kind, &backendStub{}, testTimings(), discardLogger())
		if err != nil {
			t.Fatalf("NewPage(%s): %v", kind, err)
		}
		if page.Kind() != kind {
			t.Fatalf("expected kind %s, got %s", kind, page.Kind())
		}
	}
	if _, err := ParseKind("settings"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompliancePageFollowsWorkOrder(t *testing.T) {
	server := &scriptedAlerts{}
	linked := alert("1")
	linked.WorkOrderID = "WO-7"
	server.set(linked, alert("2"))
	backend := &backendStub{alerts: server.fetch}
	page := NewCompliancePage(backend, testTimings(), discardLogger())
	ctx := context.Background()
	if err := page.Mount(ctx); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer page.Unmount()

	waitFor(t, "work order", func() bool {
		wo := page.WorkOrder().Value
		return wo != nil && wo.ID == "WO-7"
	})

	if err := page.Select("2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	state := page.WorkOrder()
	if state.Loading || state.Value != nil {
		t.Fatalf("expected cleared detail without loading, got %+v", state)
	}
	if backend.count("work_order") != 1 {
		t.Fatalf("expected no work order request for an unlinked alert")
	}

	// Refreshing with the same selection and link does not refetch.
	_ = page.Refresh(ctx)
	if backend.count("work_order") != 1 {
		t.Fatalf("unexpected refetch, got %d", backend.count("work_order"))
	}
}

func TestCompliancePageResolve(t *testing.T) {
	server := &scriptedAlerts{}
	server.set(alert("1"), alert("2"))
	resolveErr := errors.New("conflict")
	var mu sync.Mutex
	failing := true
	backend := &backendStub{
		alerts: server.fetch,
		resolve: func(ctx context.Context, id models.ID) error {
			mu.Lock()
			defer mu.Unlock()
			if failing {
				return resolveErr
			}
			return nil
		},
	}
	page := NewCompliancePage(backend, testTimings(), discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()
	waitFor(t, "alerts", func() bool { return page.Alerts().State().Loaded })

	if err := page.Resolve(ctx, "2"); !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolve error, got %v", err)
	}
	if item, _ := page.Alerts().Item("2"); item.Status != models.AlertOpen {
		t.Fatalf("expected status reverted, got %s", item.Status)
	}

	mu.Lock()
	failing = false
	mu.Unlock()
	if err := page.Resolve(ctx, "2"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if item, _ := page.Alerts().Item("2"); item.Status != models.AlertResolved {
		t.Fatalf("expected resolved, got %s", item.Status)
	}
	if err := page.Resolve(ctx, "2"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected already-resolved rejection, got %v", err)
	}
	if err := page.Resolve(ctx, "9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snapshot := page.Snapshot().(ComplianceSnapshot)
	if snapshot.Resolve.Status != StatusSuccess {
		t.Fatalf("unexpected resolve state %+v", snapshot.Resolve)
	}
}

func TestCompliancePageSimulationRefreshesFeed(t *testing.T) {
	server := &scriptedAlerts{}
	server.set(alert("1"))
	backend := &backendStub{
		alerts: server.fetch,
		simulate: func(ctx context.Context) error {
			server.set(alert("1"), alert("fault"))
			return nil
		},
	}
	page := NewCompliancePage(backend, testTimings(), discardLogger())
	_ = page.Mount(context.Background())
	defer page.Unmount()
	waitFor(t, "alerts", func() bool { return page.Alerts().State().Loaded })

	if err := page.Simulate(); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	waitFor(t, "refreshed feed", func() bool { return len(page.Alerts().State().Items) == 2 })
	if page.Simulation().State().Stage != StageDone {
		t.Fatalf("expected simulation done")
	}
}

func TestCompliancePageNoWritesAfterUnmount(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	backend := &backendStub{alerts: func(ctx context.Context) ([]models.Alert, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return []models.Alert{alert("late")}, nil
	}}
	page := NewCompliancePage(backend, Timings{PollInterval: 5 * time.Millisecond}, discardLogger())
	_ = page.Mount(context.Background())
	<-entered

	unmounted := make(chan struct{})
	go func() {
		page.Unmount()
		close(unmounted)
	}()
	waitFor(t, "disposal to start", page.Disposed)
	close(release)
	<-unmounted

	before := page.Snapshot().(ComplianceSnapshot)
	calls := backend.count("alerts")
	time.Sleep(30 * time.Millisecond)
	after := page.Snapshot().(ComplianceSnapshot)

	if before.Alerts.Loaded || len(before.Alerts.Items) != 0 {
		t.Fatalf("a response landing after unmount was applied: %+v", before.Alerts)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed after unmount")
	}
	if backend.count("alerts") != calls {
		t.Fatalf("polling continued after unmount")
	}
	if err := page.Mount(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed on remount, got %v", err)
	}
	page.Unmount()
}

func TestDashboardUploadBlockedWithoutTarget(t *testing.T) {
	backend := &backendStub{filters: func(ctx context.Context) (models.OptionSet, error) {
		return models.OptionSet{Sources: []string{"Manual A"}}, nil
	}}
	page := NewDashboardPage(backend, testTimings(), discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	page.OpenUpload()
	page.SetUploadFile("manual.pdf", []byte("%PDF"))
	if err := page.SubmitUpload(ctx); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if backend.count("ingest") != 0 {
		t.Fatalf("upload without a target must not be sent")
	}
}

func TestDashboardUploadAcceptsEmptyFile(t *testing.T) {
	var sent models.Upload
	backend := &backendStub{
		filters: func(ctx context.Context) (models.OptionSet, error) {
			return models.OptionSet{Machines: []string{"Kuka-200 Welder"}}, nil
		},
		ingest: func(ctx context.Context, upload models.Upload) error {
			sent = upload
			return nil
		},
	}
	page := NewDashboardPage(backend, testTimings(), discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	page.OpenUpload()
	page.SetUploadFile("blank.pdf", nil)
	if err := page.SubmitUpload(ctx); err != nil {
		t.Fatalf("empty document with a target should upload: %v", err)
	}
	if backend.count("ingest") != 1 || sent.FileName != "blank.pdf" || sent.Machinery != "Kuka-200 Welder" {
		t.Fatalf("unexpected upload %+v", sent)
	}
}

func TestDashboardUploadAndMachine(t *testing.T) {
	var (
		mu       sync.Mutex
		machines = []string{"Welder-1"}
		uploaded models.Upload
	)
	backend := &backendStub{
		filters: func(ctx context.Context) (models.OptionSet, error) {
			mu.Lock()
			defer mu.Unlock()
			return models.OptionSet{Machines: append([]string(nil), machines...)}, nil
		},
		ingest: func(ctx context.Context, upload models.Upload) error {
			uploaded = upload
			return nil
		},
		machine: func(ctx context.Context, form models.MachineForm) error {
			mu.Lock()
			defer mu.Unlock()
			machines = append(machines, form.Name)
			return nil
		},
		stats: func(ctx context.Context) (models.DashboardStats, error) {
			return models.DashboardStats{ActiveNodes: 12}, nil
		},
	}
	page := NewDashboardPage(backend, testTimings(), discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()
	waitFor(t, "stats", func() bool { return page.Snapshot().(DashboardSnapshot).Stats.Value != nil })

	if err := page.SubmitUpload(ctx); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected submit on closed dialog to fail, got %v", err)
	}
	page.OpenUpload()
	if err := page.SubmitUpload(ctx); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing file rejection, got %v", err)
	}
	page.SetUploadFile("manual.pdf", []byte("%PDF"))
	if err := page.SubmitUpload(ctx); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.Machinery != "Welder-1" || uploaded.ManualType != models.DefaultManualType || uploaded.FileName != "manual.pdf" {
		t.Fatalf("unexpected upload %+v", uploaded)
	}
	snapshot := page.Snapshot().(DashboardSnapshot)
	if snapshot.Upload.Open || snapshot.UploadDraft.FileName != "" {
		t.Fatalf("expected dialog closed and draft reset, got %+v", snapshot.Upload)
	}

	page.OpenMachine()
	page.SetMachineForm(models.MachineForm{Name: "Press-3", Location: "Bay 2"})
	if err := page.SubmitMachine(ctx); err != nil {
		t.Fatalf("create machine: %v", err)
	}
	snapshot = page.Snapshot().(DashboardSnapshot)
	if !snapshot.Filters.Options.HasMachine("Press-3") {
		t.Fatalf("expected options reloaded, got %v", snapshot.Filters.Options.Machines)
	}
	if snapshot.Filters.Selection.SelectedMachine != "Welder-1" {
		t.Fatalf("expected selection kept, got %q", snapshot.Filters.Selection.SelectedMachine)
	}
	if snapshot.MachineDraft.Type != models.DefaultMachineType || snapshot.MachineDraft.Name != "" {
		t.Fatalf("expected machine draft reset, got %+v", snapshot.MachineDraft)
	}
}

func TestResourcePageForms(t *testing.T) {
	var created []models.TaskForm
	backend := &backendStub{
		filters: scenarioFilters,
		task: func(ctx context.Context, form models.TaskForm) error {
			created = append(created, form)
			return nil
		},
		technician: func(ctx context.Context, form models.TechnicianForm) error {
			return errors.New("duplicate")
		},
	}
	page := NewResourcePage(backend, discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	page.SetTask(models.TaskForm{Title: "Replace belt", Description: "worn"})
	if err := page.SubmitTask(ctx); err != nil {
		t.Fatalf("submit task: %v", err)
	}
	if len(created) != 1 || created[0].TargetMachine != "Welder-1" || created[0].Priority != models.DefaultTaskPriority {
		t.Fatalf("unexpected task %+v", created)
	}
	snapshot := page.Snapshot().(ResourceSnapshot)
	if snapshot.TaskStatus.Message != TaskAddedText {
		t.Fatalf("unexpected banner %q", snapshot.TaskStatus.Message)
	}
	if snapshot.Task.Title != "" || snapshot.Task.Description != "" || snapshot.Task.TargetMachine != "Welder-1" {
		t.Fatalf("expected title and description cleared, got %+v", snapshot.Task)
	}

	if err := page.SubmitTechnician(ctx); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing name rejection, got %v", err)
	}
	page.SetTechnician(models.TechnicianForm{Name: "R. Kim"})
	if err := page.SubmitTechnician(ctx); err == nil {
		t.Fatalf("expected backend error")
	}
	snapshot = page.Snapshot().(ResourceSnapshot)
	if snapshot.TechnicianStatus.Status != StatusError || snapshot.Technician.Name != "R. Kim" {
		t.Fatalf("failed submit must keep the draft, got %+v", snapshot)
	}
	if snapshot.Technician.CertificationLevel != models.DefaultCertification {
		t.Fatalf("expected default certification, got %q", snapshot.Technician.CertificationLevel)
	}
}
