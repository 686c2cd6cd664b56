package v1alpha1

// PathsResponse is the bounded sub-selection of a job's simulated path
// bundle returned by GET /api/v1/jobs/{id}/paths.
//
// Series holds at most `limit` paths; every path is sampled at the same
// step positions T. NTotal and StepsTotal are the dimensions of the full
// bundle, not of the subset, so callers can show what fraction of the
// simulation they are looking at.
type PathsResponse struct {
	T          []float64   `json:"t"`
	Series     [][]float64 `json:"series"`
	NTotal     int         `json:"n_total"`
	StepsTotal int         `json:"steps_total"`
}

// PathBundleRef is the pointer a Monte-Carlo result carries to its stored
// path artifact. Multi-leg jobs retain a bundle only for the first leg.
type PathBundleRef struct {
	BundleID string `json:"bundle_id"`
	NPaths   int    `json:"n_paths"`
	Steps    int    `json:"steps"`
}
