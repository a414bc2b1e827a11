package console

import (
	"context"
	"log/slog"
	"sync"
)

// DetailState is a copy of a derived detail pane.
type DetailState[D any] struct {
	Value   *D   `json:"value,omitempty"`
	Loading bool `json:"loading"`
}

// Detail fetches a child resource whenever the parent selection's foreign key changes.
// Failures clear the pane without surfacing an error: a missing child reads as
// "not linked yet".
type Detail[K comparable, D any] struct {
	name   string
	fetch  func(ctx context.Context, key K) (D, error)
	scope  *scope
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	value      D
	has        bool
	loading    bool
}

func newDetail[K comparable, D any](name string, fetch func(context.Context, K) (D, error), sc *scope, logger *slog.Logger) *Detail[K, D] {
	return &Detail[K, D]{name: name, fetch: fetch, scope: sc, logger: logger.With(slog.String("detail", name))}
}

// Load points the pane at key. With ok false the pane is cleared and no request is made.
// A newer Load supersedes any request still in flight.
func (d *Detail[K, D]) Load(key K, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	generation := d.generation
	if !ok {
		d.clear()
		return
	}
	d.loading = true

	started := d.scope.Go(func(ctx context.Context) {
		value, err := d.fetch(ctx, key)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.scope.Closed() || generation != d.generation {
			return
		}
		if err != nil {
			d.logger.Debug("detail unavailable", slog.Any("key", key), slog.Any("error", err))
			d.clear()
			return
		}
		d.value = value
		d.has = true
		d.loading = false
	})
	if !started {
		d.loading = false
	}
}

// clear empties the pane. Callers hold d.mu.
func (d *Detail[K, D]) clear() {
	var zero D
	d.value = zero
	d.has = false
	d.loading = false
}

// State returns a copy of the pane.
func (d *Detail[K, D]) State() DetailState[D] {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := DetailState[D]{Loading: d.loading}
	if d.has {
		value := d.value
		state.Value = &value
	}
	return state
}
