package console

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/utils"
)

const (
	// Greeting seeds every new conversation.
	Greeting = "Hello, I am the Assembly Line AI. I have analyzed your Knowledge Graph. Please select a specific machine and data sources to begin diagnostics."
	// ConnectionErrorText replaces the answer when the agent cannot be reached.
	ConnectionErrorText = "⚠️ Connection Error: Could not reach the FactoryOS Agent."
)

// ChatState is a copy of a conversation.
type ChatState struct {
	Messages  []models.ChatMessage `json:"messages"`
	LastTrace *models.TraceGraph   `json:"lastTrace,omitempty"`
	Action    ActionState          `json:"action"`
}

// ChatLog is an append-only conversation with the agent. The trace of the latest answer
// is kept apart so the graph view can follow it.
type ChatLog struct {
	backend ChatBackend
	options *OptionLoader
	action  *Action

	mu        sync.Mutex
	messages  []models.ChatMessage
	lastTrace *models.TraceGraph
	observers []func(models.ChatMessage)
}

func newChatLog(backend ChatBackend, options *OptionLoader, sc *scope, logger *slog.Logger) *ChatLog {
	return &ChatLog{
		backend:  backend,
		options:  options,
		action:   newAction("chat", sc, logger),
		messages: []models.ChatMessage{{Role: models.RoleAssistant, Text: Greeting}},
	}
}

// OnAppend registers fn to observe every appended message, in order. fn runs with the
// log locked.
func (c *ChatLog) OnAppend(fn func(models.ChatMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Send posts query with the current machine and active sources. The user message is in
// the log before the request goes out; the answer, or a connection error, follows it.
func (c *ChatLog) Send(ctx context.Context, query string) error {
	var (
		req   models.ChatRequest
		reply models.ChatReply
	)
	return c.action.Run(ctx, Step{
		Validate: func() error {
			if strings.TrimSpace(query) == "" {
				return utils.NewFieldError("send chat", "query", "message is empty", ErrInvalidInput)
			}
			return nil
		},
		Optimistic: func() {
			req = models.ChatRequest{
				Query:           query,
				SelectedSources: c.options.ActiveSources(),
				SelectedMachine: c.options.SelectedMachine(),
			}
			c.append(models.ChatMessage{Role: models.RoleUser, Text: query})
		},
		Do: func(ctx context.Context) error {
			var err error
			reply, err = c.backend.SendChat(ctx, req)
			return err
		},
		Settle: func(err error) {
			if err != nil {
				c.append(models.ChatMessage{Role: models.RoleAssistant, Text: ConnectionErrorText})
				return
			}
			trace := reply.Trace
			c.mu.Lock()
			c.lastTrace = &trace
			c.mu.Unlock()
			c.append(EnrichMessage(models.ChatMessage{
				Role:      models.RoleAssistant,
				Text:      reply.Answer,
				Trace:     &trace,
				Citations: reply.Citations,
			}))
		},
	})
}

func (c *ChatLog) append(msg models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	for _, fn := range c.observers {
		fn(msg)
	}
}

// Messages returns a copy of the log.
func (c *ChatLog) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// LastTrace returns the trace of the most recent answer.
func (c *ChatLog) LastTrace() (models.TraceGraph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastTrace == nil {
		return models.TraceGraph{}, false
	}
	return *c.lastTrace, true
}

// State returns a copy of the conversation.
func (c *ChatLog) State() ChatState {
	c.mu.Lock()
	state := ChatState{Messages: append([]models.ChatMessage(nil), c.messages...)}
	if c.lastTrace != nil {
		trace := *c.lastTrace
		state.LastTrace = &trace
	}
	c.mu.Unlock()
	state.Action = c.action.State()
	return state
}
