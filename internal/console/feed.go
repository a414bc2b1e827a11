package console

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/factoryos/console-sync/internal/metrics"
)

// FeedOptions configures a polling Feed.
type FeedOptions[T any, K comparable] struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) ([]T, error)
	Key      func(T) K
	// Enrich repairs items for display. It must not mutate shared state; the fetched
	// records are kept as-is.
	Enrich func(T) T
	// AutoSelect selects the first item whenever nothing is selected.
	AutoSelect bool
	// OnSelect is called with the resolved selection after every state change.
	// It runs with the feed locked and must not call back into the Feed.
	OnSelect func(item T, ok bool)
	// OnRefresh observes the outcome of every applied or failed refresh.
	OnRefresh func(err error)
}

// FeedState is a copy of the feed's displayed state.
type FeedState[T any] struct {
	Items       []T       `json:"items"`
	Selected    *T        `json:"selected,omitempty"`
	Loaded      bool      `json:"loaded"`
	Generation  uint64    `json:"generation"`
	RefreshedAt time.Time `json:"refreshedAt"`
	Error       string    `json:"error,omitempty"`
}

type overlay[T any] struct {
	patch func(T) T
	until uint64
}

// Feed re-fetches a whole collection on a fixed interval and replaces its state with
// each response, keeping the selection by identity.
type Feed[T any, K comparable] struct {
	opts   FeedOptions[T, K]
	scope  *scope
	logger *slog.Logger

	mu          sync.Mutex
	started     bool
	raw         []T
	view        []T
	overlays    map[K]*overlay[T]
	selected    K
	hasSelected bool
	issued      uint64
	applied     uint64
	loaded      bool
	refreshedAt time.Time
	lastErr     error
}

func newFeed[T any, K comparable](opts FeedOptions[T, K], sc *scope, logger *slog.Logger) *Feed[T, K] {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	return &Feed[T, K]{
		opts:     opts,
		scope:    sc,
		logger:   logger.With(slog.String("feed", opts.Name)),
		overlays: make(map[K]*overlay[T]),
	}
}

// Start fetches immediately and then on every tick until the owning page unmounts.
// Ticks do not wait for earlier requests to settle.
func (f *Feed[T, K]) Start() {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	f.scope.Go(func(ctx context.Context) {
		ticker := time.NewTicker(f.opts.Interval)
		defer ticker.Stop()

		f.tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.tick()
			}
		}
	})
}

func (f *Feed[T, K]) tick() {
	f.scope.Go(func(ctx context.Context) {
		_ = f.refresh(ctx)
	})
}

// Refresh performs one fetch on the caller's goroutine.
func (f *Feed[T, K]) Refresh(ctx context.Context) error {
	return f.scope.Run(ctx, f.refresh)
}

func (f *Feed[T, K]) refresh(ctx context.Context) error {
	f.mu.Lock()
	f.issued++
	generation := f.issued
	f.mu.Unlock()

	items, err := f.opts.Fetch(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scope.Closed() {
		return ErrDisposed
	}
	if generation != f.issued {
		metrics.ObserveRefresh(f.opts.Name, metrics.OutcomeStale)
		f.logger.Debug("discarding stale response", slog.Uint64("generation", generation), slog.Uint64("latest", f.issued), slog.Any("error", err))
		return nil
	}
	if err != nil {
		f.lastErr = err
		metrics.ObserveRefresh(f.opts.Name, metrics.OutcomeError)
		f.logger.Warn("refresh failed", slog.Uint64("generation", generation), slog.Any("error", err))
		if f.opts.OnRefresh != nil {
			f.opts.OnRefresh(err)
		}
		return err
	}

	f.apply(generation, items)
	metrics.ObserveRefresh(f.opts.Name, metrics.OutcomeSuccess)
	if f.opts.OnRefresh != nil {
		f.opts.OnRefresh(nil)
	}
	return nil
}

// apply replaces the collection. Overlays confirmed before this request was issued are
// dropped; the rest are re-applied on top of the fresh data. Callers hold f.mu.
func (f *Feed[T, K]) apply(generation uint64, items []T) {
	f.raw = append([]T(nil), items...)
	for key, ov := range f.overlays {
		if generation > ov.until {
			delete(f.overlays, key)
		}
	}
	f.applied = generation
	f.loaded = true
	f.refreshedAt = time.Now()
	f.lastErr = nil
	f.render()
}

// render rebuilds the displayed view and re-resolves the selection. Callers hold f.mu.
func (f *Feed[T, K]) render() {
	view := make([]T, 0, len(f.raw))
	for _, item := range f.raw {
		if ov, ok := f.overlays[f.opts.Key(item)]; ok {
			item = ov.patch(item)
		}
		if f.opts.Enrich != nil {
			item = f.opts.Enrich(item)
		}
		view = append(view, item)
	}
	f.view = view

	if f.hasSelected {
		if _, ok := f.indexOf(f.selected); !ok {
			// The selected item vanished: fall back to the first item, or to nothing.
			f.hasSelected = false
			if len(f.view) > 0 {
				f.selected = f.opts.Key(f.view[0])
				f.hasSelected = true
			}
		}
	} else if f.opts.AutoSelect && len(f.view) > 0 {
		f.selected = f.opts.Key(f.view[0])
		f.hasSelected = true
	}
	f.notify()
}

func (f *Feed[T, K]) notify() {
	if f.opts.OnSelect == nil {
		return
	}
	if !f.hasSelected {
		var zero T
		f.opts.OnSelect(zero, false)
		return
	}
	i, _ := f.indexOf(f.selected)
	f.opts.OnSelect(f.view[i], true)
}

func (f *Feed[T, K]) indexOf(key K) (int, bool) {
	for i, item := range f.view {
		if f.opts.Key(item) == key {
			return i, true
		}
	}
	return -1, false
}

// Select focuses the item with key.
func (f *Feed[T, K]) Select(key K) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scope.Closed() {
		return ErrDisposed
	}
	if _, ok := f.indexOf(key); !ok {
		return ErrNotFound
	}
	f.selected = key
	f.hasSelected = true
	f.notify()
	return nil
}

// ClearSelection drops the current selection.
func (f *Feed[T, K]) ClearSelection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero K
	f.selected = zero
	f.hasSelected = false
	f.notify()
}

// Patch applies fn to the item with key right away. The patch keeps being re-applied to
// refreshed data until settle is called: settle(true) keeps it only for responses issued
// before that moment, settle(false) removes it and restores the fetched item.
func (f *Feed[T, K]) Patch(key K, fn func(T) T) (settle func(confirmed bool), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scope.Closed() {
		return nil, ErrDisposed
	}
	if _, ok := f.indexOf(key); !ok {
		return nil, ErrNotFound
	}
	ov := &overlay[T]{patch: fn, until: math.MaxUint64}
	f.overlays[key] = ov
	f.render()

	var once sync.Once
	return func(confirmed bool) {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.scope.Closed() || f.overlays[key] != ov {
				return
			}
			if confirmed {
				ov.until = f.issued
				return
			}
			delete(f.overlays, key)
			f.render()
		})
	}, nil
}

// Item returns the displayed item with key.
func (f *Feed[T, K]) Item(key K) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.indexOf(key)
	if !ok {
		var zero T
		return zero, false
	}
	return f.view[i], true
}

// Selected returns the displayed selected item.
func (f *Feed[T, K]) Selected() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	if !f.hasSelected {
		return zero, false
	}
	i, ok := f.indexOf(f.selected)
	if !ok {
		return zero, false
	}
	return f.view[i], true
}

// Raw returns the last fetched collection without overlays or enrichment.
func (f *Feed[T, K]) Raw() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.raw...)
}

// State returns a copy of the displayed state.
func (f *Feed[T, K]) State() FeedState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := FeedState[T]{
		Items:       append([]T{}, f.view...),
		Loaded:      f.loaded,
		Generation:  f.applied,
		RefreshedAt: f.refreshedAt,
	}
	if f.hasSelected {
		if i, ok := f.indexOf(f.selected); ok {
			item := f.view[i]
			state.Selected = &item
		}
	}
	if f.lastErr != nil {
		state.Error = f.lastErr.Error()
	}
	return state
}
