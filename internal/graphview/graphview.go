// Package graphview turns a trace graph into the data a force-directed renderer draws:
// per-node colors, the active node and faded neighbours, and hover labels. The layout
// itself belongs to the renderer.
package graphview

import (
	"errors"
	"sync"

	"github.com/factoryos/console-sync/internal/models"
)

const (
	ColorStart     = "#10b981"
	ColorSource    = "#8b5cf6"
	ColorKnowledge = "#137fec"
	ColorLink      = "#233648"
	ColorLinkHot   = "#137fec"

	// Placeholder is shown instead of an empty canvas.
	Placeholder = "No graph data yet. Ask the agent a question to see its reasoning path."
)

// ErrUnknownNode is returned when an interaction names a node that is not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// NodeView is a node as drawn.
type NodeView struct {
	ID        models.ID `json:"id"`
	Label     string    `json:"label"`
	Role      string    `json:"role,omitempty"`
	Color     string    `json:"color"`
	Active    bool      `json:"active"`
	Faded     bool      `json:"faded"`
	ShowLabel bool      `json:"showLabel"`
}

// LinkView is a link as drawn.
type LinkView struct {
	Source      models.ID `json:"source"`
	Target      models.ID `json:"target"`
	Color       string    `json:"color"`
	Highlighted bool      `json:"highlighted"`
}

// View is a renderable graph.
type View struct {
	Nodes       []NodeView `json:"nodes"`
	Links       []LinkView `json:"links"`
	ActiveID    models.ID  `json:"activeId,omitempty"`
	Empty       bool       `json:"empty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// ColorFor maps a node role to its fill color. Unknown roles draw as knowledge nodes.
func ColorFor(role string) string {
	switch role {
	case "start":
		return ColorStart
	case "source":
		return ColorSource
	default:
		return ColorKnowledge
	}
}

// Build lays out the draw data for g. When active names a node in g, that node is
// highlighted and every other node faded. Links whose endpoints are missing are dropped.
func Build(g models.TraceGraph, active, hovered models.ID) View {
	if g.Empty() {
		return View{Nodes: []NodeView{}, Links: []LinkView{}, Empty: true, Placeholder: Placeholder}
	}

	known := make(map[models.ID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	hasActive := !active.IsZero() && known[active]

	view := View{Nodes: make([]NodeView, 0, len(g.Nodes)), Links: make([]LinkView, 0, len(g.Links))}
	if hasActive {
		view.ActiveID = active
	}
	for _, n := range g.Nodes {
		isActive := hasActive && n.ID == active
		view.Nodes = append(view.Nodes, NodeView{
			ID:        n.ID,
			Label:     n.DisplayLabel(),
			Role:      n.Role,
			Color:     ColorFor(n.Role),
			Active:    isActive,
			Faded:     hasActive && !isActive,
			ShowLabel: isActive || (!hovered.IsZero() && n.ID == hovered),
		})
	}
	for _, l := range g.Links {
		if !known[l.Source] || !known[l.Target] {
			continue
		}
		hot := hasActive && (l.Source == active || l.Target == active)
		color := ColorLink
		if hot {
			color = ColorLinkHot
		}
		view.Links = append(view.Links, LinkView{Source: l.Source, Target: l.Target, Color: color, Highlighted: hot})
	}
	return view
}

// Adapter holds a graph with its interaction state.
type Adapter struct {
	mu      sync.Mutex
	graph   models.TraceGraph
	active  models.ID
	hovered models.ID
	onClick func(models.ID)
}

// NewAdapter returns an adapter reporting clicks to onClick, which may be nil.
func NewAdapter(onClick func(models.ID)) *Adapter {
	return &Adapter{onClick: onClick}
}

// SetGraph replaces the graph wholesale. Hover and an active node that no longer exists
// are cleared.
func (a *Adapter) SetGraph(g models.TraceGraph) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph = g
	a.hovered = ""
	if !a.hasNode(a.active) {
		a.active = ""
	}
}

// SetActive highlights id. An empty id clears the highlight.
func (a *Adapter) SetActive(id models.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !id.IsZero() && !a.hasNode(id) {
		return ErrUnknownNode
	}
	a.active = id
	return nil
}

// Hover reveals the label of id. An empty id ends the hover.
func (a *Adapter) Hover(id models.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !id.IsZero() && !a.hasNode(id) {
		return ErrUnknownNode
	}
	a.hovered = id
	return nil
}

// Click reports id to the click handler.
func (a *Adapter) Click(id models.ID) error {
	a.mu.Lock()
	ok := a.hasNode(id)
	onClick := a.onClick
	a.mu.Unlock()
	if !ok {
		return ErrUnknownNode
	}
	if onClick != nil {
		onClick(id)
	}
	return nil
}

// View returns the current draw data.
func (a *Adapter) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Build(a.graph, a.active, a.hovered)
}

func (a *Adapter) hasNode(id models.ID) bool {
	for _, n := range a.graph.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
