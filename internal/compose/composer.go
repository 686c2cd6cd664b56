// Package compose deterministically builds the params payload of a job
// before submission. It validates only what is cheap to validate client-side
// (required fields, finite numbers, positive strikes) and rejects unsupported
// product/algo/mode combinations without touching the network.
package compose

import (
	"math"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

const (
	DefaultNumSteps = 252
	DefaultNumPaths = 50000
	DefaultQubits   = 8
	DefaultShots    = 1024
)

// Compose builds the params record for the given request. The emitted record
// contains exactly the fields defined for the (type, product, algo, mode)
// combination, nothing else.
func Compose(req Request) (api.JobParams, error) {
	switch req.Type {
	case api.JobTypeOptionPricing:
		return composePricing(req)
	case api.JobTypePortfolioOptimization:
		return composeOptimization(req)
	default:
		return nil, NewErrCapability("unsupported job type %q", req.Type)
	}
}

func composePricing(req Request) (api.JobParams, error) {
	if req.Product != api.ProductEuropean {
		return nil, NewErrCapability("product %q is not supported by this composer; only European pricing is available", req.Product)
	}

	switch req.Algo {
	case api.AlgoBlackScholes, api.AlgoMonteCarlo, api.AlgoQAE:
	default:
		return nil, NewErrCapability("algo %q is not a pricing algorithm", req.Algo)
	}

	var params api.JobParams
	var err error
	switch req.Mode {
	case ModeChain:
		params, err = composeChain(req.Chain)
	case ModeHistorical:
		params, err = composeHistorical(req.Historical)
	default:
		return nil, NewErrCapability("unknown data source mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	if err := appendAlgoFields(params, req); err != nil {
		return nil, err
	}
	return params, nil
}

func composeChain(form *ChainForm) (api.JobParams, error) {
	if form == nil {
		return nil, NewErrValidation("chain mode requires a chain form")
	}
	if len(form.Legs) == 0 {
		return nil, NewErrValidation("at least one leg is required")
	}
	if err := checkFinite("r", form.R); err != nil {
		return nil, err
	}
	if err := checkFinite("q", form.Q); err != nil {
		return nil, err
	}

	legs := make([]map[string]any, 0, len(form.Legs))
	for i, leg := range form.Legs {
		ticker := NormalizeTicker(leg.Ticker)
		if ticker == "" {
			return nil, NewErrValidation("leg %d: ticker is required", i+1)
		}
		if leg.Expiry == "" {
			return nil, NewErrValidation("leg %d: expiry is required", i+1)
		}
		if err := checkPositive("strike", leg.Strike); err != nil {
			return nil, NewErrValidation("leg %d: %s", i+1, err)
		}
		if leg.OptionType != Call && leg.OptionType != Put {
			return nil, NewErrValidation("leg %d: option type must be CALL or PUT", i+1)
		}
		if leg.Quantity == 0 || !isFinite(leg.Quantity) {
			return nil, NewErrValidation("leg %d: quantity must be a non-zero finite number", i+1)
		}

		legs = append(legs, map[string]any{
			"ticker":      ticker,
			"expiry":      leg.Expiry,
			"strike":      leg.Strike,
			"option_type": string(leg.OptionType),
			"qty":         leg.Quantity,
		})
	}

	return api.JobParams{
		"legs": legs,
		"r":    form.R,
		"q":    form.Q,
	}, nil
}

func composeHistorical(form *HistoricalForm) (api.JobParams, error) {
	if form == nil {
		return nil, NewErrValidation("historical mode requires a historical form")
	}

	ticker := NormalizeTicker(form.Ticker)
	if ticker == "" {
		return nil, NewErrValidation("ticker is required")
	}
	if form.OptionType != Call && form.OptionType != Put {
		return nil, NewErrValidation("option type must be CALL or PUT")
	}
	if err := checkPositive("strike", form.Strike); err != nil {
		return nil, err
	}
	if err := checkFinite("r", form.R); err != nil {
		return nil, err
	}
	if err := checkFinite("q", form.Q); err != nil {
		return nil, err
	}

	params := api.JobParams{
		"ticker":      ticker,
		"option_type": string(form.OptionType),
		"strike":      form.Strike,
		"r":           form.R,
		"q":           form.Q,
	}

	t, hasT := form.MaturityYears()
	switch {
	case form.Expiry() != "":
		params["expiry"] = form.Expiry()
	case hasT:
		if err := checkPositive("T", t); err != nil {
			return nil, err
		}
		params["T"] = t
	default:
		return nil, NewErrValidation("either an expiry date or a maturity in years is required")
	}

	if form.Sigma != nil {
		if err := checkPositive("sigma", *form.Sigma); err != nil {
			return nil, err
		}
		params["sigma"] = *form.Sigma
	}

	return params, nil
}

// appendAlgoFields adds the algorithm-specific knobs; they are identical for
// both data source modes.
func appendAlgoFields(params api.JobParams, req Request) error {
	switch req.Algo {
	case api.AlgoMonteCarlo:
		opts := req.MonteCarlo
		if opts == nil {
			opts = &MonteCarloOpts{NumSteps: DefaultNumSteps, NumPaths: DefaultNumPaths}
		}
		if opts.NumSteps < 1 {
			return NewErrValidation("num_steps must be at least 1")
		}
		if opts.NumPaths < 1 {
			return NewErrValidation("num_paths must be at least 1")
		}
		params["num_steps"] = opts.NumSteps
		params["num_paths"] = opts.NumPaths
		params["save_paths"] = opts.SavePaths

	case api.AlgoQAE:
		opts := req.QAE
		if opts == nil {
			opts = &QAEOpts{Qubits: DefaultQubits, Shots: DefaultShots, Sampler: SamplerTerra}
		}
		if opts.Qubits < 1 {
			return NewErrValidation("qubits must be at least 1")
		}
		if opts.Shots < 1 {
			return NewErrValidation("shots must be at least 1")
		}
		switch opts.Sampler {
		case SamplerTerra, SamplerV2, SamplerAer:
		default:
			return NewErrValidation("sampler must be one of terra, v2, aer")
		}
		params["qubits"] = opts.Qubits
		params["shots"] = opts.Shots
		params["sampler"] = string(opts.Sampler)
	}

	return nil
}

func composeOptimization(req Request) (api.JobParams, error) {
	switch req.Algo {
	case api.AlgoMeanVariance, api.AlgoQUBO, api.AlgoQAOA:
	default:
		return nil, NewErrCapability("algo %q is not an optimization algorithm", req.Algo)
	}

	form := req.Optimization
	if form == nil {
		form = &OptimizationForm{}
	}
	if !isFinite(form.Target) {
		return nil, NewErrValidation("target must be a finite number")
	}

	constraint := form.Constraint
	if constraint == "" {
		constraint = ConstraintNone
	}
	if _, ok := constraints[constraint]; !ok {
		return nil, NewErrValidation("unknown constraint %q", constraint)
	}

	return api.JobParams{
		"target":     form.Target,
		"constraint": string(constraint),
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkFinite(name string, v float64) error {
	if !isFinite(v) {
		return NewErrValidation("%s must be a finite number", name)
	}
	return nil
}

func checkPositive(name string, v float64) error {
	if !isFinite(v) || v <= 0 {
		return NewErrValidation("%s must be a positive finite number", name)
	}
	return nil
}
