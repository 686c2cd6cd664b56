package compose

import (
	"strings"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

// DataSourceMode selects where an option-pricing job takes its market inputs
// from: a live option chain (multi-leg) or a historical series (single
// instrument, volatility estimated backend-side when sigma is omitted).
type DataSourceMode string

const (
	ModeChain      DataSourceMode = "chain"
	ModeHistorical DataSourceMode = "historical"
)

type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// SamplerKind enumerates the quantum samplers accepted by the QAE runner.
type SamplerKind string

const (
	SamplerTerra SamplerKind = "terra"
	SamplerV2    SamplerKind = "v2"
	SamplerAer   SamplerKind = "aer"
)

// Constraint enumerates the portfolio optimization constraint presets.
type Constraint string

const (
	ConstraintNone         Constraint = "None"
	ConstraintLongOnly     Constraint = "Long-only"
	ConstraintGrossLeqOne  Constraint = "Gross<=1"
	ConstraintMaxWeight20  Constraint = "Max-weight-20%"
	ConstraintCardinality5 Constraint = "Cardinality=5"
)

var constraints = map[Constraint]struct{}{
	ConstraintNone:         {},
	ConstraintLongOnly:     {},
	ConstraintGrossLeqOne:  {},
	ConstraintMaxWeight20:  {},
	ConstraintCardinality5: {},
}

// Leg is one option contract of a chain-mode request, as entered by the user.
type Leg struct {
	Ticker     string
	Expiry     string
	Strike     float64
	OptionType OptionType
	Quantity   float64
}

// ChainForm carries a chain-mode pricing request: one or more legs plus the
// shared market inputs.
type ChainForm struct {
	Legs []Leg
	R    float64
	Q    float64
}

// HistoricalForm carries a historical-mode, single-instrument pricing request.
// The maturity is either a literal expiry date or a year count, never both;
// the setters keep the two mutually exclusive.
type HistoricalForm struct {
	Ticker     string
	OptionType OptionType
	Strike     float64
	R          float64
	Q          float64

	// Sigma is optional; nil tells the backend to estimate volatility from
	// the historical series.
	Sigma *float64

	expiry string
	tYears *float64
}

// SetExpiry fixes the maturity to a literal date and clears any year count.
func (h *HistoricalForm) SetExpiry(date string) {
	h.expiry = date
	h.tYears = nil
}

// SetMaturityYears fixes the maturity as time-to-expiry in years and clears
// any literal date.
func (h *HistoricalForm) SetMaturityYears(t float64) {
	h.tYears = &t
	h.expiry = ""
}

func (h *HistoricalForm) Expiry() string { return h.expiry }

func (h *HistoricalForm) MaturityYears() (float64, bool) {
	if h.tYears == nil {
		return 0, false
	}
	return *h.tYears, true
}

// MonteCarloOpts are the simulation knobs appended for algo=MonteCarlo.
type MonteCarloOpts struct {
	NumSteps  int
	NumPaths  int
	SavePaths bool
}

// QAEOpts are the estimator knobs appended for algo=QAE.
type QAEOpts struct {
	Qubits  int
	Shots   int
	Sampler SamplerKind
}

// OptimizationForm carries a portfolio optimization request. Portfolio
// scoping is optional; an unscoped run resolves against the full asset
// universe backend-side.
type OptimizationForm struct {
	Target     float64
	Constraint Constraint
}

// Request is the full input of the composer.
type Request struct {
	Type    api.JobType
	Product api.Product
	Algo    api.Algo
	Mode    DataSourceMode

	Chain        *ChainForm
	Historical   *HistoricalForm
	Optimization *OptimizationForm

	MonteCarlo *MonteCarloOpts
	QAE        *QAEOpts
}

// NormalizeTicker upper-cases a ticker and strips a single leading currency
// symbol, matching what the market endpoints expect.
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	return strings.TrimPrefix(t, "$")
}
