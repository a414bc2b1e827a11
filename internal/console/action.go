package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/factoryos/console-sync/internal/metrics"
	"github.com/factoryos/console-sync/internal/utils"
)

// Status is the lifecycle of a transactional action.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ActionState is a copy of an action's lifecycle, ready to render as a banner or chip.
type ActionState struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Step describes one dispatch of an Action.
type Step struct {
	// Validate runs before anything changes; a failure means nothing is dispatched.
	Validate func() error
	// Optimistic runs after the action turns pending and before the request is sent.
	Optimistic func()
	// Do performs the request.
	Do func(ctx context.Context) error
	// Settle folds the outcome into page state before the terminal status is set.
	Settle func(err error)
	// SuccessMessage is shown when Do succeeds.
	SuccessMessage string
}

// Action drives a user write through idle, pending and success or error.
type Action struct {
	name   string
	scope  *scope
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	message string
	err     error
}

func newAction(name string, sc *scope, logger *slog.Logger) *Action {
	return &Action{name: name, scope: sc, logger: logger, status: StatusIdle}
}

// Run validates, dispatches and settles step. It returns ErrBusy while another run of
// the same action is pending.
func (a *Action) Run(ctx context.Context, step Step) error {
	if step.Validate != nil {
		if err := step.Validate(); err != nil {
			return err
		}
	}

	a.mu.Lock()
	if a.scope.Closed() {
		a.mu.Unlock()
		return ErrDisposed
	}
	if a.status == StatusPending {
		a.mu.Unlock()
		return utils.NewAppError(a.name, "already in progress", ErrBusy)
	}
	a.status = StatusPending
	a.message = ""
	a.err = nil
	a.mu.Unlock()

	if step.Optimistic != nil {
		step.Optimistic()
	}

	err := a.scope.Run(ctx, func(ctx context.Context) error {
		err := step.Do(ctx)
		if a.scope.Closed() {
			return ErrDisposed
		}
		if step.Settle != nil {
			step.Settle(err)
		}
		a.finish(err, step.SuccessMessage)
		return err
	})
	if errors.Is(err, ErrDisposed) {
		return err
	}
	if err != nil {
		a.logger.Warn("action failed", slog.String("action", a.name), slog.Any("error", err))
	}
	return err
}

func (a *Action) finish(err error, successMessage string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status = StatusError
		a.err = err
		a.message = ""
		metrics.ObserveAction(a.name, metrics.OutcomeError)
		return
	}
	a.status = StatusSuccess
	a.message = successMessage
	metrics.ObserveAction(a.name, metrics.OutcomeSuccess)
}

// Reset returns a settled action to idle.
func (a *Action) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusPending {
		return
	}
	a.status = StatusIdle
	a.message = ""
	a.err = nil
}

// State returns a copy of the lifecycle.
func (a *Action) State() ActionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := ActionState{Status: a.status, Message: a.message}
	if a.err != nil {
		state.Error = userMessage(a.err)
	}
	return state
}

// Modal is a form dialog whose action closes it after a short delay on success.
type Modal struct {
	action     *Action
	scope      *scope
	closeDelay time.Duration
	onClose    func()

	mu   sync.Mutex
	open bool
	seq  uint64
}

func newModal(action *Action, sc *scope, closeDelay time.Duration, onClose func()) *Modal {
	return &Modal{action: action, scope: sc, closeDelay: closeDelay, onClose: onClose}
}

// Open shows the dialog with a fresh action state.
func (m *Modal) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.open = true
	m.action.Reset()
}

// Close hides the dialog and runs the reset hook.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Modal) closeLocked() {
	m.seq++
	m.open = false
	m.action.Reset()
	if m.onClose != nil {
		m.onClose()
	}
}

// IsOpen reports whether the dialog is showing.
func (m *Modal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Submit runs step inside the dialog. On success the dialog closes after the configured
// delay, or right away when the delay is zero.
func (m *Modal) Submit(ctx context.Context, step Step) error {
	m.mu.Lock()
	open := m.open
	seq := m.seq
	m.mu.Unlock()
	if !open {
		return utils.NewAppError(m.action.name, "dialog is not open", ErrInvalidInput)
	}

	if err := m.action.Run(ctx, step); err != nil {
		return err
	}

	if m.closeDelay <= 0 {
		m.mu.Lock()
		if m.seq == seq && !m.scope.Closed() {
			m.closeLocked()
		}
		m.mu.Unlock()
		return nil
	}

	m.scope.Go(func(ctx context.Context) {
		timer := time.NewTimer(m.closeDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		// Reopened or closed by hand in the meantime.
		if m.seq != seq || m.scope.Closed() {
			return
		}
		m.closeLocked()
	})
	return nil
}

// State returns the dialog's action state.
func (m *Modal) State() ModalState {
	return ModalState{Open: m.IsOpen(), Action: m.action.State()}
}

// ModalState is a copy of a dialog.
type ModalState struct {
	Open   bool        `json:"open"`
	Action ActionState `json:"action"`
}
