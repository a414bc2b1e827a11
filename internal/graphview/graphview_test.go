package graphview

import (
	"testing"

	"github.com/factoryos/console-sync/internal/models"
)

func sampleGraph() models.TraceGraph {
	return models.TraceGraph{
		Nodes: []models.Node{
			{ID: "q", Name: "Query", Role: "start"},
			{ID: "m", Label: "Manual A", Role: "source"},
			{ID: "k", Role: "knowledge"},
		},
		Links: []models.Link{
			{Source: "q", Target: "m"},
			{Source: "m", Target: "k"},
			{Source: "k", Target: "ghost"},
		},
	}
}

func TestBuildEmptyGraphYieldsPlaceholder(t *testing.T) {
	view := Build(models.TraceGraph{}, "x", "")
	if !view.Empty || view.Placeholder == "" {
		t.Fatalf("expected placeholder view, got %+v", view)
	}
	if view.Nodes == nil || view.Links == nil {
		t.Fatalf("expected non-nil slices for an empty view")
	}
}

func TestBuildColorsAndLabels(t *testing.T) {
	view := Build(sampleGraph(), "", "")
	want := map[models.ID]struct{ color, label string }{
		"q": {ColorStart, "Query"},
		"m": {ColorSource, "Manual A"},
		"k": {ColorKnowledge, "k"},
	}
	for _, n := range view.Nodes {
		w := want[n.ID]
		if n.Color != w.color || n.Label != w.label {
			t.Fatalf("node %s: got color %s label %q", n.ID, n.Color, n.Label)
		}
		if n.Faded || n.Active || n.ShowLabel {
			t.Fatalf("node %s should be plain without an active node: %+v", n.ID, n)
		}
	}
	if len(view.Links) != 2 {
		t.Fatalf("expected dangling link to be dropped, got %d links", len(view.Links))
	}
}

func TestBuildHighlightsActiveNode(t *testing.T) {
	view := Build(sampleGraph(), "m", "k")
	for _, n := range view.Nodes {
		switch n.ID {
		case "m":
			if !n.Active || n.Faded || !n.ShowLabel {
				t.Fatalf("active node not highlighted: %+v", n)
			}
		case "k":
			if !n.Faded || !n.ShowLabel {
				t.Fatalf("hovered node should be faded with label: %+v", n)
			}
		default:
			if !n.Faded || n.ShowLabel {
				t.Fatalf("unexpected node state: %+v", n)
			}
		}
	}
	for _, l := range view.Links {
		if !l.Highlighted || l.Color != ColorLinkHot {
			t.Fatalf("links touching the active node should be highlighted: %+v", l)
		}
	}
}

func TestBuildIgnoresUnknownActive(t *testing.T) {
	view := Build(sampleGraph(), "nope", "")
	if view.ActiveID != "" {
		t.Fatalf("expected no active id, got %q", view.ActiveID)
	}
	for _, n := range view.Nodes {
		if n.Faded {
			t.Fatalf("no node should fade for an unknown active id")
		}
	}
}

func TestAdapterInteractions(t *testing.T) {
	var clicked []models.ID
	a := NewAdapter(func(id models.ID) { clicked = append(clicked, id) })

	if err := a.Click("q"); err != ErrUnknownNode {
		t.Fatalf("expected ErrUnknownNode on empty graph, got %v", err)
	}
	if !a.View().Empty {
		t.Fatalf("expected placeholder before SetGraph")
	}

	a.SetGraph(sampleGraph())
	if err := a.SetActive("k"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := a.Hover("q"); err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if err := a.Click("m"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(clicked) != 1 || clicked[0] != "m" {
		t.Fatalf("expected click to report m, got %v", clicked)
	}

	view := a.View()
	if view.ActiveID != "k" {
		t.Fatalf("expected active k, got %q", view.ActiveID)
	}

	a.SetGraph(models.TraceGraph{Nodes: []models.Node{{ID: "z"}}})
	view = a.View()
	if view.ActiveID != "" {
		t.Fatalf("active node should clear when the graph is replaced without it")
	}
	for _, n := range view.Nodes {
		if n.ShowLabel {
			t.Fatalf("hover should clear on replace")
		}
	}
}
