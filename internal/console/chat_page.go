package console

import (
	"context"
	"log/slog"

	"github.com/factoryos/console-sync/internal/graphview"
	"github.com/factoryos/console-sync/internal/models"
)

// ChatSnapshot is the state of a chat page.
type ChatSnapshot struct {
	Filters OptionsState   `json:"filters"`
	Chat    ChatState      `json:"chat"`
	Graph   graphview.View `json:"graph"`
}

// ChatPage pairs the agent conversation with its filter sidebar and trace graph.
type ChatPage struct {
	pageBase
	options *OptionLoader
	chat    *ChatLog
	graph   *graphview.Adapter
}

// NewChatPage builds an unmounted chat page.
func NewChatPage(backend ChatBackend, logger *slog.Logger) *ChatPage {
	p := &ChatPage{pageBase: newPageBase(KindChat, logger)}
	p.options = newOptionLoader(backend, p.scope, p.logger)
	p.chat = newChatLog(backend, p.options, p.scope, p.logger)
	p.graph = graphview.NewAdapter(func(id models.ID) {
		_ = p.graph.SetActive(id)
	})
	p.chat.OnAppend(func(msg models.ChatMessage) {
		if msg.Trace != nil {
			p.graph.SetGraph(*msg.Trace)
		}
	})
	return p
}

// Mount loads the filter options.
func (p *ChatPage) Mount(ctx context.Context) error {
	first, err := p.beginMount()
	if err != nil || !first {
		return err
	}
	_ = p.options.Load(ctx)
	return nil
}

// Options exposes the filter sidebar.
func (p *ChatPage) Options() *OptionLoader { return p.options }

// Send posts query to the agent.
func (p *ChatPage) Send(ctx context.Context, query string) error {
	return p.chat.Send(ctx, query)
}

// Messages returns the conversation so far.
func (p *ChatPage) Messages() []models.ChatMessage { return p.chat.Messages() }

// LastTrace returns the trace of the latest answer.
func (p *ChatPage) LastTrace() (models.TraceGraph, bool) { return p.chat.LastTrace() }

// FocusNode highlights a node of the current trace, as when a citation is opened.
func (p *ChatPage) FocusNode(id models.ID) error { return p.graph.SetActive(id) }

// Graph exposes the trace graph for hover and click interactions.
func (p *ChatPage) Graph() *graphview.Adapter { return p.graph }

// Snapshot returns a ChatSnapshot.
func (p *ChatPage) Snapshot() any {
	return ChatSnapshot{Filters: p.options.State(), Chat: p.chat.State(), Graph: p.graph.View()}
}
