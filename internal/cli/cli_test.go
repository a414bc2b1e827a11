package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/factoryos/console-sync/internal/config"
	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/mockfactory"
	"github.com/factoryos/console-sync/internal/repo"
	"github.com/factoryos/console-sync/internal/services"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	backend := mockfactory.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		Feed:    config.FeedConfig{AlertsInterval: time.Hour},
	}
	client := repo.NewFactoryClient(srv.URL, 5*time.Second, nil)
	service := services.NewConsoleService(nil, client, console.Timings{PollInterval: time.Hour, StageDelay: time.Millisecond})

	out := &bytes.Buffer{}
	a := &app{cfg: cfg, logger: nil, client: client, service: service, out: out}
	t.Cleanup(service.Close)
	return a, out
}

func TestAskPrintsExchange(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	page, err := mount[*console.ChatPage](ctx, a, console.KindChat)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := applyFilters(page.Options(), "Conveyor Belt C2", []string{"Safety Protocol 7B"}); err != nil {
		t.Fatalf("filters: %v", err)
	}
	if err := ask(ctx, out, page, "Is the belt ok?"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "you: Is the belt ok?") {
		t.Fatalf("user message missing: %q", text)
	}
	if !strings.Contains(text, "Based on 1 source(s)") || !strings.Contains(text, "Conveyor Belt C2") {
		t.Fatalf("reply not scoped to filters: %q", text)
	}
}

func TestAskRejectsBlankQuery(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	page, err := mount[*console.ChatPage](ctx, a, console.KindChat)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := ask(ctx, out, page, "   "); err == nil {
		t.Fatal("expected blank query to be rejected")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should print, got %q", out.String())
	}
}

func TestApplyFiltersUnknown(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	page, err := mount[*console.ChatPage](ctx, a, console.KindChat)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := applyFilters(page.Options(), "Nope", nil); err == nil {
		t.Fatal("expected unknown machine to fail")
	}
	if err := applyFilters(page.Options(), "", []string{"Nope"}); err == nil {
		t.Fatal("expected unknown source to fail")
	}
}

func TestConverseReadsLines(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	page, err := mount[*console.ChatPage](ctx, a, console.KindChat)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	in := strings.NewReader("first question\n\nsecond question\n")
	if err := converse(ctx, in, out, page); err != nil {
		t.Fatalf("converse: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, console.Greeting) {
		t.Fatalf("greeting missing: %q", text)
	}
	if strings.Count(text, "agent: Based on") != 2 {
		t.Fatalf("expected two replies, got %q", text)
	}
}

func TestSimulateRefreshesFeed(t *testing.T) {
	a, out := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page, err := mount[*console.CompliancePage](ctx, a, console.KindCompliance)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := page.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := len(page.Alerts().State().Items)

	if err := simulate(ctx, out, page); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if got := len(page.Alerts().State().Items); got != before+1 {
		t.Fatalf("expected %d alerts after simulation, got %d", before+1, got)
	}
	if !strings.Contains(out.String(), console.StageDone.Label()) {
		t.Fatalf("final stage not printed: %q", out.String())
	}
}
