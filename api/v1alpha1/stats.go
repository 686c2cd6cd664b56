package v1alpha1

// JobStats is the backend-aggregated summary served by GET /api/v1/jobs/stats.
// The client renders it as-is and re-polls; it never aggregates locally.
type JobStats struct {
	Total    int               `json:"total"`
	ByStatus map[JobStatus]int `json:"byStatus"`
	Recent   []Job             `json:"recent"`
	Running  []Job             `json:"running"`
}

// ClientStats is the entity-count summary served by GET /api/v1/clients/stats.
type ClientStats struct {
	Clients    int `json:"clients"`
	Portfolios int `json:"portfolios"`
	Assets     int `json:"assets"`
}
