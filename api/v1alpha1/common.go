package v1alpha1

func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusPending):
		return JobStatusPending
	case string(JobStatusRunning):
		return JobStatusRunning
	case string(JobStatusSucceeded):
		return JobStatusSucceeded
	case string(JobStatusFailed):
		return JobStatusFailed
	default:
		return JobStatusPending
	}
}

// Rank orders statuses over Pending < Running < {Succeeded, Failed}.
// The two terminal statuses share a rank; neither follows the other.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusSucceeded, JobStatusFailed:
		return 2
	default:
		return 0
	}
}

// AllJobStatuses is the full status set in transition order. Stats responses
// zero-fill their byStatus map over this list.
var AllJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusRunning,
	JobStatusSucceeded,
	JobStatusFailed,
}

func StringToJobType(s string) JobType {
	switch s {
	case string(JobTypePortfolioOptimization):
		return JobTypePortfolioOptimization
	default:
		return JobTypeOptionPricing
	}
}
