package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the append-only conversation log.
type ChatMessage struct {
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Trace     *TraceGraph `json:"trace,omitempty"`
	Citations []Citation  `json:"citations,omitempty"`
}

// Citation points at the knowledge-graph evidence behind an answer.
type Citation struct {
	ID         ID      `json:"id"`
	NodeID     ID      `json:"node_id"`
	SourceName string  `json:"source_name"`
	Snippet    string  `json:"snippet"`
	Confidence float64 `json:"confidence"`
	PageNumber *int    `json:"page_number,omitempty"`
}

// ChatRequest is the body posted to the agent.
type ChatRequest struct {
	Query           string   `json:"query"`
	SelectedSources []string `json:"selected_sources"`
	SelectedMachine string   `json:"selected_machine"`
}

// ChatReply is the agent's answer.
type ChatReply struct {
	Answer    string     `json:"answer"`
	Trace     TraceGraph `json:"trace"`
	Citations []Citation `json:"citations"`
}
