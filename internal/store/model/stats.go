package model

// PlatformStats feeds the prometheus gauges exported by the metrics server.
type PlatformStats struct {
	TotalJobs    int
	JobsByStatus map[string]int
	Clients      int
	Portfolios   int
	Assets       int
}

// JobStatsResult is the raw material of the jobs/stats endpoint: counts plus
// the short recent/running job lists, all computed store-side.
type JobStatsResult struct {
	Total    int
	ByStatus map[string]int
	Recent   JobList
	Running  JobList
}
