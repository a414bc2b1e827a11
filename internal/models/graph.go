package models

// TraceGraph is the reasoning path returned with an answer, also used for the full topology.
type TraceGraph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is a graph vertex. Backends name the display text either "name" or "label".
type Node struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`
	Role  string `json:"role,omitempty"`
}

// DisplayLabel returns the best available human label.
func (n Node) DisplayLabel() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Label != "" {
		return n.Label
	}
	return string(n.ID)
}

// Link is a directed edge between two node ids.
type Link struct {
	Source ID `json:"source"`
	Target ID `json:"target"`
}

// Empty reports whether the graph has no nodes.
func (g TraceGraph) Empty() bool { return len(g.Nodes) == 0 }
