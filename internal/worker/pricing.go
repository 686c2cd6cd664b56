package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

// maxStoredPaths bounds the size of the persisted path artifact; the
// simulation itself still runs the full requested path count.
const maxStoredPaths = 200

type legParams struct {
	Ticker     string  `json:"ticker"`
	Expiry     string  `json:"expiry"`
	Strike     float64 `json:"strike"`
	OptionType string  `json:"option_type"`
	Qty        float64 `json:"qty"`
}

type pricingParams struct {
	Legs []legParams `json:"legs"`

	Ticker     string   `json:"ticker"`
	OptionType string   `json:"option_type"`
	Strike     float64  `json:"strike"`
	Expiry     string   `json:"expiry"`
	T          *float64 `json:"T"`
	Sigma      *float64 `json:"sigma"`

	R float64 `json:"r"`
	Q float64 `json:"q"`

	NumSteps  int    `json:"num_steps"`
	NumPaths  int    `json:"num_paths"`
	SavePaths bool   `json:"save_paths"`
	Qubits    int    `json:"qubits"`
	Shots     int    `json:"shots"`
	Sampler   string `json:"sampler"`
}

func decodeParams[T any](params api.JobParams) (*T, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, NewJobFailure(fmt.Errorf("malformed params: %w", err))
	}
	return &out, nil
}

// resolvedLeg is one leg with its market inputs filled in.
type resolvedLeg struct {
	legParams
	spot  float64
	sigma float64
	tExp  float64
}

func (w *Worker) executePricing(ctx context.Context, job *model.Job) (api.JobResult, error) {
	if job.Params == nil {
		return nil, NewJobFailure(fmt.Errorf("job has no params"))
	}
	params, err := decodeParams[pricingParams](job.Params.Data)
	if err != nil {
		return nil, err
	}

	if len(params.Legs) > 0 {
		return w.priceMultiLeg(ctx, job, params)
	}
	return w.priceSingle(ctx, job, params)
}

func (w *Worker) priceSingle(ctx context.Context, job *model.Job, params *pricingParams) (api.JobResult, error) {
	leg := legParams{
		Ticker:     params.Ticker,
		Expiry:     params.Expiry,
		Strike:     params.Strike,
		OptionType: params.OptionType,
		Qty:        1,
	}
	resolved, err := w.resolveLeg(ctx, leg, params.T, params.Sigma)
	if err != nil {
		return nil, err
	}

	price, stderr, bundle, err := w.priceLeg(ctx, job, resolved, params, true)
	if err != nil {
		return nil, err
	}

	result := api.SingleInstrumentResult{
		Price:     price,
		StdErr:    stderr,
		Spot:      resolved.spot,
		Sigma:     resolved.sigma,
		TimeToExp: resolved.tExp,
		Paths:     bundle,
	}
	return api.ToPayload(result)
}

func (w *Worker) priceMultiLeg(ctx context.Context, job *model.Job, params *pricingParams) (api.JobResult, error) {
	legs := make([]api.LegResult, 0, len(params.Legs))
	var notional, weightedSum, qtySum float64

	for i, lp := range params.Legs {
		resolved, err := w.resolveLeg(ctx, lp, nil, nil)
		if err != nil {
			return nil, err
		}

		// only the first leg keeps a path artifact
		price, stderr, bundle, err := w.priceLeg(ctx, job, resolved, params, i == 0)
		if err != nil {
			return nil, err
		}

		legs = append(legs, api.LegResult{
			Leg:        i + 1,
			Ticker:     resolved.Ticker,
			Expiry:     resolved.Expiry,
			OptionType: resolved.OptionType,
			Strike:     resolved.Strike,
			Quantity:   resolved.Qty,
			Spot:       resolved.spot,
			Sigma:      resolved.sigma,
			TimeToExp:  resolved.tExp,
			Price:      price,
			StdErr:     stderr,
			Paths:      bundle,
		})

		notional += resolved.Qty * price
		weightedSum += math.Abs(resolved.Qty) * price
		qtySum += math.Abs(resolved.Qty)
	}

	totals := &api.LegTotals{Notional: notional}
	if qtySum > 0 {
		totals.WeightedAvg = weightedSum / qtySum
	}

	return api.ToPayload(api.MultiLegResult{Legs: legs, Totals: totals})
}

// resolveLeg fills in spot, sigma and time-to-expiry. An explicit T or sigma
// from the params wins; otherwise T comes from the expiry date and sigma from
// the option chain's implied vol at the nearest strike, falling back to
// realized vol from the historical series.
func (w *Worker) resolveLeg(ctx context.Context, leg legParams, tOverride, sigmaOverride *float64) (*resolvedLeg, error) {
	look, err := w.market.Lookup(ctx, leg.Ticker)
	if err != nil {
		return nil, NewJobFailure(fmt.Errorf("resolving %s: %w", leg.Ticker, err))
	}

	var tExp float64
	switch {
	case tOverride != nil:
		tExp = *tOverride
	case leg.Expiry != "":
		expDate, err := time.Parse("2006-01-02", leg.Expiry)
		if err != nil {
			return nil, NewJobFailure(fmt.Errorf("leg %s: bad expiry %q", leg.Ticker, leg.Expiry))
		}
		tExp = time.Until(expDate).Hours() / 24 / 365
		if tExp <= 0 {
			return nil, NewJobFailure(fmt.Errorf("leg %s: expiry %s is in the past", leg.Ticker, leg.Expiry))
		}
	default:
		return nil, NewJobFailure(fmt.Errorf("leg %s: no expiry or maturity given", leg.Ticker))
	}

	var sigma float64
	switch {
	case sigmaOverride != nil:
		sigma = *sigmaOverride
	case leg.Expiry != "":
		sigma = w.impliedVolNearStrike(ctx, leg)
	}
	if sigma <= 0 {
		closes, err := w.market.History(ctx, leg.Ticker)
		if err != nil {
			return nil, NewJobFailure(fmt.Errorf("fetching history for %s: %w", leg.Ticker, err))
		}
		if sigma, err = market.AnnualizedVol(closes); err != nil {
			return nil, NewJobFailure(fmt.Errorf("estimating vol for %s: %w", leg.Ticker, err))
		}
	}

	return &resolvedLeg{
		legParams: leg,
		spot:      look.Price,
		sigma:     sigma,
		tExp:      tExp,
	}, nil
}

func (w *Worker) impliedVolNearStrike(ctx context.Context, leg legParams) float64 {
	chain, err := w.market.Chain(ctx, leg.Ticker, leg.Expiry)
	if err != nil {
		return 0
	}
	quotes := chain.Calls
	if leg.OptionType == "PUT" {
		quotes = chain.Puts
	}

	best := 0.0
	bestDist := math.Inf(1)
	for _, q := range quotes {
		if d := math.Abs(q.Strike - leg.Strike); d < bestDist {
			bestDist = d
			best = q.ImpliedVol
		}
	}
	return best
}

// priceLeg runs the job's algorithm for one leg. The returned path reference
// is non-nil only for Monte-Carlo runs with save_paths on a path-keeping leg.
func (w *Worker) priceLeg(ctx context.Context, job *model.Job, leg *resolvedLeg, params *pricingParams, keepPaths bool) (float64, float64, *api.PathBundleRef, error) {
	isCall := leg.OptionType != "PUT"

	switch api.Algo(job.Algo) {
	case api.AlgoBlackScholes:
		price := bsPrice(leg.spot, leg.Strike, params.R, params.Q, leg.sigma, leg.tExp, isCall)
		return price, 0, nil, nil

	case api.AlgoMonteCarlo:
		price, stderr, paths, grid := simulateEuropean(jobSeed(job), leg, params, isCall)
		var ref *api.PathBundleRef
		if params.SavePaths && keepPaths {
			bundle, err := w.store.PathBundle().Create(ctx, model.PathBundle{
				JobID:    job.ID,
				NPaths:   len(paths),
				Steps:    len(grid),
				TimeGrid: model.MakeJSONField(grid),
				Values:   model.MakeJSONField(paths),
			})
			if err != nil {
				return 0, 0, nil, fmt.Errorf("persisting path bundle: %w", err)
			}
			ref = &api.PathBundleRef{
				BundleID: bundle.ID.String(),
				NPaths:   bundle.NPaths,
				Steps:    bundle.Steps,
			}
		}
		return price, stderr, ref, nil

	case api.AlgoQAE:
		price, stderr := amplitudeEstimate(leg, params, isCall)
		return price, stderr, nil, nil

	default:
		return 0, 0, nil, NewJobFailure(fmt.Errorf("algo %s cannot price options", job.Algo))
	}
}

// simulateEuropean prices a European option by simulating GBM paths. Only the
// first maxStoredPaths paths are retained for the artifact; the estimate uses
// all of them.
func simulateEuropean(seed int64, leg *resolvedLeg, params *pricingParams, isCall bool) (price, stderr float64, stored [][]float64, grid []float64) {
	numSteps := params.NumSteps
	if numSteps < 1 {
		numSteps = 1
	}
	numPaths := params.NumPaths
	if numPaths < 1 {
		numPaths = 1
	}

	rng := rand.New(rand.NewSource(seed))
	dt := leg.tExp / float64(numSteps)
	drift := (params.R - params.Q - 0.5*leg.sigma*leg.sigma) * dt
	diffusion := leg.sigma * math.Sqrt(dt)
	discount := math.Exp(-params.R * leg.tExp)

	keep := numPaths
	if params.SavePaths && keep > maxStoredPaths {
		keep = maxStoredPaths
	}
	if params.SavePaths {
		grid = make([]float64, numSteps+1)
		for i := range grid {
			grid[i] = float64(i) * dt
		}
		stored = make([][]float64, 0, keep)
	}

	var sum, sumSq float64
	for p := 0; p < numPaths; p++ {
		s := leg.spot
		var path []float64
		record := params.SavePaths && p < keep
		if record {
			path = make([]float64, 0, numSteps+1)
			path = append(path, s)
		}

		for step := 0; step < numSteps; step++ {
			s *= math.Exp(drift + diffusion*rng.NormFloat64())
			if record {
				path = append(path, s)
			}
		}
		if record {
			stored = append(stored, path)
		}

		payoff := payoff(s, leg.Strike, isCall)
		sum += payoff
		sumSq += payoff * payoff
	}

	n := float64(numPaths)
	mean := sum / n
	price = discount * mean

	if numPaths > 1 {
		variance := (sumSq - sum*sum/n) / (n - 1)
		if variance > 0 {
			stderr = discount * math.Sqrt(variance/n)
		}
	}
	return price, stderr, stored, grid
}

// amplitudeEstimate is a classical stand-in for quantum amplitude estimation:
// the terminal distribution is discretized on a 2^qubits grid and the
// expectation read off it, with a shot-limited standard error.
func amplitudeEstimate(leg *resolvedLeg, params *pricingParams, isCall bool) (float64, float64) {
	qubits := params.Qubits
	if qubits < 1 {
		qubits = 1
	}
	shots := params.Shots
	if shots < 1 {
		shots = 1
	}

	levels := 1 << qubits
	mu := math.Log(leg.spot) + (params.R-params.Q-0.5*leg.sigma*leg.sigma)*leg.tExp
	sd := leg.sigma * math.Sqrt(leg.tExp)
	discount := math.Exp(-params.R * leg.tExp)

	// integrate the lognormal payoff over +/-4 standard deviations
	lo, hi := mu-4*sd, mu+4*sd
	step := (hi - lo) / float64(levels)

	var expectation, second, weight float64
	for i := 0; i < levels; i++ {
		x := lo + (float64(i)+0.5)*step
		p := math.Exp(-(x-mu)*(x-mu)/(2*sd*sd)) / (sd * math.Sqrt(2*math.Pi)) * step
		v := payoff(math.Exp(x), leg.Strike, isCall)
		expectation += p * v
		second += p * v * v
		weight += p
	}
	if weight > 0 {
		expectation /= weight
		second /= weight
	}

	variance := second - expectation*expectation
	if variance < 0 {
		variance = 0
	}
	price := discount * expectation
	stderr := discount * math.Sqrt(variance/float64(shots))
	return price, stderr
}

func payoff(s, k float64, isCall bool) float64 {
	if isCall {
		return math.Max(s-k, 0)
	}
	return math.Max(k-s, 0)
}

func bsPrice(s, k, r, q, sigma, t float64, call bool) float64 {
	if t <= 0 || sigma <= 0 {
		return payoff(s, k, call)
	}
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	if call {
		return s*math.Exp(-q*t)*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
	}
	return k*math.Exp(-r*t)*normCDF(-d2) - s*math.Exp(-q*t)*normCDF(-d1)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
