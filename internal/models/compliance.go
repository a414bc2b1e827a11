package models

// Severity captures alert impact levels.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityLow      Severity = "Low"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "Open"
	AlertResolved AlertStatus = "Resolved"
)

// Alert is a compliance conflict raised by the backend.
type Alert struct {
	ID             ID          `json:"id"`
	Severity       Severity    `json:"severity"`
	Title          string      `json:"title"`
	Machine        string      `json:"machine"`
	Timestamp      string      `json:"timestamp"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
	Technician     string      `json:"technician,omitempty"`
	Status         AlertStatus `json:"status"`
	WorkOrderID    ID          `json:"work_order_id,omitempty"`
}

// WorkOrder is the maintenance order linked to an alert.
type WorkOrder struct {
	ID       ID     `json:"id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
	DueDate  string `json:"due_date"`
}
