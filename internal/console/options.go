package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/utils"
)

// LoadStatus is the state of a one-shot option load.
type LoadStatus string

const (
	LoadPending LoadStatus = "loading"
	LoadReady   LoadStatus = "ready"
	LoadFailed  LoadStatus = "failed"
)

// OptionsState is a copy of the loader state.
type OptionsState struct {
	Options   models.OptionSet      `json:"options"`
	Selection models.SelectionState `json:"selection"`
	Status    LoadStatus            `json:"status"`
	Error     string                `json:"error,omitempty"`
}

// OptionLoader fetches the machine and source lists and seeds the selection from them.
// Sources start selected; the first machine is selected by default.
type OptionLoader struct {
	source OptionsSource
	scope  *scope
	logger *slog.Logger

	mu        sync.Mutex
	options   models.OptionSet
	selection models.SelectionState
	status    LoadStatus
	err       error
}

func newOptionLoader(source OptionsSource, sc *scope, logger *slog.Logger) *OptionLoader {
	return &OptionLoader{
		source:    source,
		scope:     sc,
		logger:    logger,
		options:   models.OptionSet{Machines: []string{}, Sources: []string{}},
		selection: models.SelectionState{SelectedSources: map[string]bool{}},
		status:    LoadPending,
	}
}

// Load fetches the option lists. A failure leaves the lists empty and the status failed;
// there is no retry.
func (l *OptionLoader) Load(ctx context.Context) error {
	err := l.scope.Run(ctx, func(ctx context.Context) error {
		l.mu.Lock()
		l.status = LoadPending
		l.mu.Unlock()

		options, err := l.source.FetchFilters(ctx)
		if l.scope.Closed() {
			return ErrDisposed
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.options = models.OptionSet{Machines: []string{}, Sources: []string{}}
			l.selection = models.SelectionState{SelectedSources: map[string]bool{}}
			l.status = LoadFailed
			l.err = err
			return err
		}
		l.seed(options)
		return nil
	})
	if err != nil && !errors.Is(err, ErrDisposed) {
		l.logger.Warn("load filters failed", slog.Any("error", err))
	}
	return err
}

// Reload re-fetches the lists, keeping the machine selection and existing source flags
// where they still apply. A failed reload leaves the current state untouched.
func (l *OptionLoader) Reload(ctx context.Context) error {
	return l.scope.Run(ctx, func(ctx context.Context) error {
		options, err := l.source.FetchFilters(ctx)
		if err != nil {
			return err
		}
		if l.scope.Closed() {
			return ErrDisposed
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		l.seed(options)
		return nil
	})
}

// seed installs options and reconciles the selection with them. Callers hold l.mu.
func (l *OptionLoader) seed(options models.OptionSet) {
	options = options.Clone()
	if options.Machines == nil {
		options.Machines = []string{}
	}
	if options.Sources == nil {
		options.Sources = []string{}
	}

	machine := l.selection.SelectedMachine
	if !options.HasMachine(machine) {
		machine = ""
		if len(options.Machines) > 0 {
			machine = options.Machines[0]
		}
	}

	sources := make(map[string]bool, len(options.Sources))
	for _, name := range options.Sources {
		active, seen := l.selection.SelectedSources[name]
		if !seen {
			active = true
		}
		sources[name] = active
	}

	l.options = options
	l.selection = models.SelectionState{SelectedMachine: machine, SelectedSources: sources}
	l.status = LoadReady
	l.err = nil
}

// SelectMachine changes the selected machine; name must be a known machine.
func (l *OptionLoader) SelectMachine(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.options.HasMachine(name) {
		return utils.NewFieldError("select machine", "machine", "unknown machine "+name, ErrNotFound)
	}
	l.selection.SelectedMachine = name
	return nil
}

// SetSource flips a single source flag.
func (l *OptionLoader) SetSource(name string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.selection.SelectedSources[name]; !ok {
		return utils.NewFieldError("select source", "source", "unknown source "+name, ErrNotFound)
	}
	l.selection.SelectedSources[name] = active
	return nil
}

// ToggleSource inverts a source flag and returns the new value.
func (l *OptionLoader) ToggleSource(name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	active, ok := l.selection.SelectedSources[name]
	if !ok {
		return false, utils.NewFieldError("toggle source", "source", "unknown source "+name, ErrNotFound)
	}
	l.selection.SelectedSources[name] = !active
	return !active, nil
}

// ActiveSources lists the selected sources in option order.
func (l *OptionLoader) ActiveSources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	active := make([]string, 0, len(l.options.Sources))
	for _, name := range l.options.Sources {
		if l.selection.SelectedSources[name] {
			active = append(active, name)
		}
	}
	return active
}

// SelectedMachine returns the current machine, or "" when none is available.
func (l *OptionLoader) SelectedMachine() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selection.SelectedMachine
}

// State returns a copy of the loader state.
func (l *OptionLoader) State() OptionsState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := OptionsState{
		Options:   l.options.Clone(),
		Selection: l.selection.Clone(),
		Status:    l.status,
	}
	if l.err != nil {
		state.Error = l.err.Error()
	}
	return state
}
