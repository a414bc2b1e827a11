package console

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/factoryos/console-sync/internal/models"
)

func scenarioFilters(ctx context.Context) (models.OptionSet, error) {
	return models.OptionSet{Machines: []string{"Welder-1", "Conveyor-2"}, Sources: []string{"Manual A", "Manual B"}}, nil
}

func TestChatSendAppendsUserMessageBeforeReply(t *testing.T) {
	var page *ChatPage
	var seen []models.ChatMessage
	var body models.ChatRequest
	trace := models.TraceGraph{
		Nodes: []models.Node{{ID: "q", Name: "Query", Role: "start"}, {ID: "n1", Label: "Spindle", Role: "knowledge"}},
		Links: []models.Link{{Source: "q", Target: "n1"}},
	}
	citations := []models.Citation{{ID: "c1", NodeID: "n1", SourceName: "Manual A", Snippet: "check torque", Confidence: 0.9}}
	backend := &backendStub{
		filters: scenarioFilters,
		chat: func(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
			seen = page.Messages()
			body = req
			return models.ChatReply{Answer: "All nominal.", Trace: trace, Citations: citations}, nil
		},
	}
	page = NewChatPage(backend, discardLogger())
	ctx := context.Background()
	if err := page.Mount(ctx); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer page.Unmount()
	if _, err := page.Options().ToggleSource("Manual B"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := page.Send(ctx, "status?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(seen) != 2 || seen[1].Role != models.RoleUser || seen[1].Text != "status?" {
		t.Fatalf("expected user message in log before the reply, got %+v", seen)
	}
	wantBody := models.ChatRequest{Query: "status?", SelectedSources: []string{"Manual A"}, SelectedMachine: "Welder-1"}
	if !reflect.DeepEqual(body, wantBody) {
		t.Fatalf("unexpected request body: %+v", body)
	}

	messages := page.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected greeting, question and answer, got %d", len(messages))
	}
	if messages[0].Text != Greeting {
		t.Fatalf("expected greeting first")
	}
	answer := messages[2]
	if answer.Role != models.RoleAssistant || answer.Text != "All nominal." || answer.Trace == nil || !reflect.DeepEqual(answer.Citations, citations) {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	last, ok := page.LastTrace()
	if !ok || !reflect.DeepEqual(last, trace) {
		t.Fatalf("expected last trace replaced, got %+v", last)
	}

	snapshot := page.Snapshot().(ChatSnapshot)
	if snapshot.Graph.Empty || len(snapshot.Graph.Nodes) != 2 {
		t.Fatalf("expected graph to follow the answer trace, got %+v", snapshot.Graph)
	}
	if snapshot.Chat.Action.Status != StatusSuccess {
		t.Fatalf("expected success status, got %s", snapshot.Chat.Action.Status)
	}
	if err := page.FocusNode("n1"); err != nil {
		t.Fatalf("focus node: %v", err)
	}
	if page.Graph().View().ActiveID != "n1" {
		t.Fatalf("expected n1 active")
	}
}

func TestChatBlankQueryIsNotSent(t *testing.T) {
	backend := &backendStub{filters: scenarioFilters}
	page := NewChatPage(backend, discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	if err := page.Send(ctx, "   \n"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if backend.count("chat") != 0 || len(page.Messages()) != 1 {
		t.Fatalf("blank query must not dispatch or append")
	}
}

func TestChatFailureAppendsConnectionError(t *testing.T) {
	backend := &backendStub{
		filters: scenarioFilters,
		chat: func(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
			return models.ChatReply{}, errors.New("connection refused")
		},
	}
	page := NewChatPage(backend, discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	if err := page.Send(ctx, "status?"); err == nil {
		t.Fatalf("expected error")
	}
	messages := page.Messages()
	if len(messages) != 3 || messages[2].Text != ConnectionErrorText || messages[2].Role != models.RoleAssistant {
		t.Fatalf("expected connection error message, got %+v", messages)
	}
	if _, ok := page.LastTrace(); ok {
		t.Fatalf("a failed send must not set a trace")
	}
	state := page.Snapshot().(ChatSnapshot)
	if state.Chat.Action.Status != StatusError || state.Chat.Action.Error == "" {
		t.Fatalf("expected error status, got %+v", state.Chat.Action)
	}
}

func TestChatRejectsSecondSendWhilePending(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := &backendStub{
		filters: scenarioFilters,
		chat: func(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
			close(entered)
			<-release
			return models.ChatReply{Answer: "done"}, nil
		},
	}
	page := NewChatPage(backend, discardLogger())
	ctx := context.Background()
	_ = page.Mount(ctx)
	defer page.Unmount()

	done := make(chan error, 1)
	go func() { done <- page.Send(ctx, "first") }()
	<-entered

	if err := page.Send(ctx, "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if backend.count("chat") != 1 {
		t.Fatalf("expected a single dispatch, got %d", backend.count("chat"))
	}
}
