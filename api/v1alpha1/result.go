package v1alpha1

// LegResult is one priced leg inside a multi-leg pricing result.
type LegResult struct {
	Leg        int            `json:"leg"`
	Ticker     string         `json:"ticker"`
	Expiry     string         `json:"expiry,omitempty"`
	OptionType string         `json:"otype"`
	Strike     float64        `json:"strike"`
	Quantity   float64        `json:"qty"`
	Spot       float64        `json:"S0"`
	Sigma      float64        `json:"sigma"`
	TimeToExp  float64        `json:"T"`
	Price      float64        `json:"price"`
	StdErr     float64        `json:"stderr,omitempty"`
	Paths      *PathBundleRef `json:"paths,omitempty"`
}

// LegTotals aggregates a multi-leg book: signed notional and the
// quantity-weighted average price.
type LegTotals struct {
	Notional    float64 `json:"notional"`
	WeightedAvg float64 `json:"weightedAvg"`
}

// MultiLegResult is the result payload of a chain-mode pricing job.
type MultiLegResult struct {
	Legs   []LegResult `json:"legs"`
	Totals *LegTotals  `json:"totals,omitempty"`
}

// SingleInstrumentResult is the result payload of a historical-mode pricing
// job: a point estimate with an optional Monte-Carlo standard error, echoing
// the resolved market inputs.
type SingleInstrumentResult struct {
	Price     float64        `json:"price"`
	StdErr    float64        `json:"stderr,omitempty"`
	Spot      float64        `json:"S0,omitempty"`
	Sigma     float64        `json:"sigma,omitempty"`
	TimeToExp float64        `json:"T,omitempty"`
	Paths     *PathBundleRef `json:"paths,omitempty"`
}

// OptimizationResult is the result payload of a portfolio optimization job.
type OptimizationResult struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expectedReturn"`
	Variance       float64            `json:"variance"`
	Constraint     string             `json:"constraint,omitempty"`
}
