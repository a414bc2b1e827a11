package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/factoryos/console-sync/internal/config"
)

// Kind names a console page.
type Kind string

const (
	KindChat       Kind = "chat"
	KindCompliance Kind = "compliance"
	KindDashboard  Kind = "dashboard"
	KindResources  Kind = "resources"
)

// Kinds lists every page kind.
func Kinds() []Kind {
	return []Kind{KindChat, KindCompliance, KindDashboard, KindResources}
}

// ParseKind validates a page kind name.
func ParseKind(name string) (Kind, error) {
	for _, kind := range Kinds() {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown page kind %q: %w", name, ErrInvalidInput)
}

// Page is a per-page context object: it owns everything fetched for one mounted view
// and releases it on Unmount.
type Page interface {
	Kind() Kind
	// Mount performs the initial loads and starts background work. Load failures are
	// reported through the page state, not the returned error.
	Mount(ctx context.Context) error
	// Unmount stops timers and waits for in-flight work. It is idempotent.
	Unmount()
	// Snapshot returns a copy of the page state.
	Snapshot() any
}

// Timings holds the fixed delays pages run with.
type Timings struct {
	PollInterval time.Duration
	CloseDelay   time.Duration
	StageDelay   time.Duration
}

// DefaultTimings mirrors the console's observed delays.
func DefaultTimings() Timings {
	return Timings{PollInterval: 5 * time.Second, CloseDelay: 1500 * time.Millisecond, StageDelay: 1500 * time.Millisecond}
}

// TimingsFromConfig reads the delays from cfg.
func TimingsFromConfig(cfg *config.Config) Timings {
	return Timings{
		PollInterval: cfg.Feed.AlertsInterval,
		CloseDelay:   cfg.Actions.ModalCloseDelay,
		StageDelay:   cfg.Actions.StageDelay,
	}
}

// NewPage constructs an unmounted page of kind.
func NewPage(kind Kind, backend Backend, timings Timings, logger *slog.Logger) (Page, error) {
	switch kind {
	case KindChat:
		return NewChatPage(backend, logger), nil
	case KindCompliance:
		return NewCompliancePage(backend, timings, logger), nil
	case KindDashboard:
		return NewDashboardPage(backend, timings, logger), nil
	case KindResources:
		return NewResourcePage(backend, logger), nil
	default:
		return nil, fmt.Errorf("unknown page kind %q: %w", kind, ErrInvalidInput)
	}
}

type pageBase struct {
	kind   Kind
	scope  *scope
	logger *slog.Logger

	mountMu sync.Mutex
	mounted bool
}

func newPageBase(kind Kind, logger *slog.Logger) pageBase {
	if logger == nil {
		logger = slog.Default()
	}
	return pageBase{kind: kind, scope: newScope(), logger: logger.With(slog.String("page", string(kind)))}
}

func (b *pageBase) Kind() Kind { return b.kind }

// beginMount reports whether this is the first Mount of a live page.
func (b *pageBase) beginMount() (bool, error) {
	b.mountMu.Lock()
	defer b.mountMu.Unlock()
	if b.scope.Closed() {
		return false, ErrDisposed
	}
	if b.mounted {
		return false, nil
	}
	b.mounted = true
	b.logger.Debug("page mounted")
	return true, nil
}

func (b *pageBase) Unmount() {
	if b.scope.Closed() {
		return
	}
	b.scope.Close()
	b.logger.Debug("page unmounted")
}

// Disposed reports whether the page has been unmounted.
func (b *pageBase) Disposed() bool {
	return b.scope.Closed()
}
