package console

import (
	"context"
	"sync"
)

// scope tracks the goroutines and in-flight calls owned by one mounted page.
// Close cancels them and waits, so nothing they write lands after Close returns.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

func (s *scope) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// Go runs fn on a tracked goroutine. It reports false once the scope is closed.
func (s *scope) Go(fn func(ctx context.Context)) bool {
	if !s.enter() {
		return false
	}
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

// Run executes fn on the caller's goroutine with a context cancelled by either the
// caller or the scope.
func (s *scope) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.enter() {
		return ErrDisposed
	}
	defer s.wg.Done()

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return fn(runCtx)
}

// Closed reports whether Close has started.
func (s *scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close is idempotent.
func (s *scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
