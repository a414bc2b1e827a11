package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/factoryos/console-sync/internal/utils"
)

func TestActionLifecycle(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	action := newAction("test", sc, discardLogger())
	var order []string

	err := action.Run(context.Background(), Step{
		Optimistic: func() {
			order = append(order, "optimistic:"+string(action.State().Status))
		},
		Do: func(ctx context.Context) error {
			order = append(order, "do")
			return nil
		},
		Settle: func(err error) {
			order = append(order, "settle")
		},
		SuccessMessage: "saved",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"optimistic:pending", "do", "settle"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order %v", order)
		}
	}
	if state := action.State(); state.Status != StatusSuccess || state.Message != "saved" {
		t.Fatalf("unexpected state %+v", state)
	}

	action.Reset()
	if action.State().Status != StatusIdle {
		t.Fatalf("expected idle after reset")
	}
}

func TestActionValidationBlocksDispatch(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	action := newAction("test", sc, discardLogger())
	called := false

	err := action.Run(context.Background(), Step{
		Validate: func() error { return utils.NewAppError("test", "name is required", ErrInvalidInput) },
		Do: func(ctx context.Context) error {
			called = true
			return nil
		},
	})
	if !errors.Is(err, ErrInvalidInput) || called {
		t.Fatalf("expected validation failure without dispatch, got %v", err)
	}
	if action.State().Status != StatusIdle {
		t.Fatalf("validation failures leave the action idle")
	}
}

func TestActionFailureSurfacesMessage(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	action := newAction("test", sc, discardLogger())

	err := action.Run(context.Background(), Step{
		Do: func(ctx context.Context) error {
			return utils.NewAppError("create", "name already taken", errors.New("409"))
		},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	state := action.State()
	if state.Status != StatusError || state.Error != "name already taken" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestActionAfterDisposal(t *testing.T) {
	sc := newScope()
	action := newAction("test", sc, discardLogger())
	sc.Close()

	err := action.Run(context.Background(), Step{Do: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestModalClosesAfterDelay(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	resets := 0
	modal := newModal(newAction("test", sc, discardLogger()), sc, 20*time.Millisecond, func() { resets++ })

	step := Step{Do: func(ctx context.Context) error { return nil }, SuccessMessage: "done"}
	if err := modal.Submit(context.Background(), step); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected submit on a closed dialog to fail, got %v", err)
	}

	modal.Open()
	if err := modal.Submit(context.Background(), step); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state := modal.State()
	if !state.Open || state.Action.Status != StatusSuccess {
		t.Fatalf("expected open dialog showing success, got %+v", state)
	}
	waitFor(t, "dialog to close", func() bool { return !modal.IsOpen() })
	if state := modal.State(); state.Action.Status != StatusIdle {
		t.Fatalf("expected reset after close, got %+v", state)
	}
	if resets != 1 {
		t.Fatalf("expected one reset, got %d", resets)
	}
}

func TestModalReopenCancelsPendingClose(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	modal := newModal(newAction("test", sc, discardLogger()), sc, 30*time.Millisecond, nil)

	modal.Open()
	if err := modal.Submit(context.Background(), Step{Do: func(ctx context.Context) error { return nil }}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	modal.Close()
	modal.Open()
	time.Sleep(60 * time.Millisecond)
	if !modal.IsOpen() {
		t.Fatalf("a stale close timer must not close a reopened dialog")
	}
}

func TestModalFailureStaysOpen(t *testing.T) {
	sc := newScope()
	defer sc.Close()
	modal := newModal(newAction("test", sc, discardLogger()), sc, 0, nil)
	modal.Open()

	err := modal.Submit(context.Background(), Step{Do: func(ctx context.Context) error { return errors.New("boom") }})
	if err == nil {
		t.Fatalf("expected error")
	}
	if state := modal.State(); !state.Open || state.Action.Status != StatusError {
		t.Fatalf("expected open dialog with error, got %+v", state)
	}
}
