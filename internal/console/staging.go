package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/factoryos/console-sync/internal/metrics"
	"github.com/factoryos/console-sync/internal/utils"
)

// Stage is a step of the simulated fault walkthrough.
type Stage int

const (
	StageIdle Stage = iota
	StageInjecting
	StageDetecting
	StageGenerating
	StageDispatching
	StageDone
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageInjecting:   "injecting",
	StageDetecting:   "detecting",
	StageGenerating:  "generating",
	StageDispatching: "dispatching",
	StageDone:        "done",
}

var stageLabels = [...]string{
	StageIdle:        "",
	StageInjecting:   "Injecting fault telemetry...",
	StageDetecting:   "Detecting compliance conflict...",
	StageGenerating:  "Generating work order...",
	StageDispatching: "Dispatching technician...",
	StageDone:        "Simulation complete.",
}

func (s Stage) String() string {
	if s < StageIdle || s > StageDone {
		return "unknown"
	}
	return stageNames[s]
}

// Label is the progress text shown for the stage.
func (s Stage) Label() string {
	if s < StageIdle || s > StageDone {
		return ""
	}
	return stageLabels[s]
}

// Running reports whether a walkthrough is in progress.
func (s Stage) Running() bool {
	return s > StageIdle && s < StageDone
}

// MarshalText renders the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// SimulationState is a copy of the simulator.
type SimulationState struct {
	Stage Stage  `json:"stage"`
	Label string `json:"label,omitempty"`
	Error string `json:"error,omitempty"`
}

// Simulation walks a fixed sequence of progress stages around a single trigger request.
// Injecting lasts as long as the request; each later stage lasts one delay. The
// stages are presentation only and do not track backend progress.
type Simulation struct {
	trigger func(ctx context.Context) error
	onDone  func(ctx context.Context)
	delay   time.Duration
	scope   *scope
	logger  *slog.Logger

	mu        sync.Mutex
	stage     Stage
	err       error
	listeners []func(Stage)
}

func newSimulation(trigger func(context.Context) error, onDone func(context.Context), delay time.Duration, sc *scope, logger *slog.Logger) *Simulation {
	return &Simulation{trigger: trigger, onDone: onDone, delay: delay, scope: sc, logger: logger}
}

// OnStage registers fn to observe every transition. fn runs with the simulator locked.
func (s *Simulation) OnStage(fn func(Stage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start fires the trigger request and advances the stages in the background. It returns
// ErrBusy while a walkthrough is running.
func (s *Simulation) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Running() {
		return utils.NewAppError("simulate fault", "simulation already running", ErrBusy)
	}
	if s.scope.Closed() {
		return ErrDisposed
	}
	s.err = nil
	s.transition(StageInjecting)

	if !s.scope.Go(s.run) {
		s.transition(StageIdle)
		return ErrDisposed
	}
	return nil
}

func (s *Simulation) run(ctx context.Context) {
	if err := s.trigger(ctx); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.scope.Closed() {
			return
		}
		s.err = err
		s.transition(StageIdle)
		metrics.ObserveAction("simulate", metrics.OutcomeError)
		s.logger.Warn("simulated fault failed", slog.Any("error", err))
		return
	}
	metrics.ObserveAction("simulate", metrics.OutcomeSuccess)

	for next := StageDetecting; next <= StageDone; next++ {
		if !s.advance(next) {
			return
		}
		if next == StageDone {
			break
		}
		if !sleep(ctx, s.delay) {
			return
		}
	}
	if s.onDone != nil {
		s.onDone(ctx)
	}
}

func (s *Simulation) advance(stage Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope.Closed() {
		return false
	}
	s.transition(stage)
	return true
}

// transition moves to stage. Callers hold s.mu.
func (s *Simulation) transition(stage Stage) {
	if s.stage == stage {
		return
	}
	s.logger.Debug("simulation stage", slog.String("from", s.stage.String()), slog.String("to", stage.String()))
	s.stage = stage
	for _, fn := range s.listeners {
		fn(stage)
	}
}

// Reset returns a finished walkthrough to Idle.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Running() {
		return
	}
	s.err = nil
	s.transition(StageIdle)
}

// State returns a copy of the simulator.
func (s *Simulation) State() SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := SimulationState{Stage: s.stage, Label: s.stage.Label()}
	if s.err != nil {
		state.Error = userMessage(s.err)
	}
	return state
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
