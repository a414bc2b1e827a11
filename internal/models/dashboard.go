package models

// DashboardStats summarises knowledge-graph health for the dashboard header.
type DashboardStats struct {
	ActiveNodes      int      `json:"active_nodes"`
	Uptime           Scalar   `json:"uptime"`
	ManualsProcessed int      `json:"manuals_processed"`
	VectorSpeed      Scalar   `json:"vector_speed"`
	DataSources      []string `json:"data_sources"`
}
