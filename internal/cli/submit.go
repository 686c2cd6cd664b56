package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/compose"
)

type SubmitOptions struct {
	GlobalOptions

	Type      string
	Product   string
	Algo      string
	Priority  string
	Submitter string

	ClientID    string
	PortfolioID string

	// historical mode
	Ticker        string
	OptionType    string
	Strike        float64
	Expiry        string
	MaturityYears float64
	Sigma         float64

	// chain mode: repeated TICKER,EXPIRY,STRIKE,CALL|PUT,QTY
	Legs []string

	Rate     float64
	Dividend float64

	NumSteps  int
	NumPaths  int
	SavePaths bool
	Qubits    int
	Shots     int
	Sampler   string

	Target     float64
	Constraint string
}

func DefaultSubmitOptions() *SubmitOptions {
	return &SubmitOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Type:          string(api.JobTypeOptionPricing),
		Product:       string(api.ProductEuropean),
		Algo:          string(api.AlgoBlackScholes),
		Priority:      string(api.PriorityNormal),
		OptionType:    string(compose.Call),
		NumSteps:      compose.DefaultNumSteps,
		NumPaths:      compose.DefaultNumPaths,
		Qubits:        compose.DefaultQubits,
		Shots:         compose.DefaultShots,
		Sampler:       string(compose.SamplerTerra),
		Constraint:    string(compose.ConstraintNone),
	}
}

func NewCmdSubmit() *cobra.Command {
	o := DefaultSubmitOptions()
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Compose and submit a pricing or optimization job.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *SubmitOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Type, "type", o.Type, "Job type: OptionPricing or PortfolioOptimization")
	fs.StringVar(&o.Product, "product", o.Product, "Product for pricing jobs")
	fs.StringVar(&o.Algo, "algo", o.Algo, "Algorithm: BlackScholes, MonteCarlo, QAE, MeanVariance, QUBO, QAOA")
	fs.StringVar(&o.Priority, "priority", o.Priority, "Queue priority: Low, Normal, High, Urgent")
	fs.StringVar(&o.Submitter, "submitter", o.Submitter, "Name recorded as the job submitter")
	fs.StringVar(&o.ClientID, "client-id", o.ClientID, "Owning client id")
	fs.StringVar(&o.PortfolioID, "portfolio-id", o.PortfolioID, "Owning portfolio id")

	fs.StringVar(&o.Ticker, "ticker", o.Ticker, "Underlying ticker (historical mode)")
	fs.StringVar(&o.OptionType, "option-type", o.OptionType, "CALL or PUT (historical mode)")
	fs.Float64Var(&o.Strike, "strike", o.Strike, "Strike price (historical mode)")
	fs.StringVar(&o.Expiry, "expiry", o.Expiry, "Expiry date YYYY-MM-DD; mutually exclusive with --maturity-years")
	fs.Float64Var(&o.MaturityYears, "maturity-years", o.MaturityYears, "Time to expiry in years; mutually exclusive with --expiry")
	fs.Float64Var(&o.Sigma, "sigma", o.Sigma, "Volatility override; omit to estimate from history")
	fs.StringArrayVar(&o.Legs, "leg", o.Legs, "Chain-mode leg as TICKER,EXPIRY,STRIKE,CALL|PUT,QTY (repeatable)")

	fs.Float64Var(&o.Rate, "rate", o.Rate, "Risk-free rate")
	fs.Float64Var(&o.Dividend, "dividend", o.Dividend, "Dividend yield")

	fs.IntVar(&o.NumSteps, "num-steps", o.NumSteps, "Monte-Carlo time steps")
	fs.IntVar(&o.NumPaths, "num-paths", o.NumPaths, "Monte-Carlo paths")
	fs.BoolVar(&o.SavePaths, "save-paths", o.SavePaths, "Persist simulated paths for later inspection")
	fs.IntVar(&o.Qubits, "qubits", o.Qubits, "QAE qubit count")
	fs.IntVar(&o.Shots, "shots", o.Shots, "QAE shot count")
	fs.StringVar(&o.Sampler, "sampler", o.Sampler, "QAE sampler: terra, v2 or aer")

	fs.Float64Var(&o.Target, "target", o.Target, "Optimization target return")
	fs.StringVar(&o.Constraint, "constraint", o.Constraint, "Optimization constraint preset")
}

func (o *SubmitOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Submitter == "" {
		return fmt.Errorf("--submitter is required")
	}
	if o.Expiry != "" && o.MaturityYears != 0 {
		return fmt.Errorf("--expiry and --maturity-years are mutually exclusive")
	}
	return nil
}

func (o *SubmitOptions) Run(ctx context.Context, _ []string) error {
	params, err := o.composeParams()
	if err != nil {
		return err
	}

	sub := api.JobSubmission{
		Type:      api.JobType(o.Type),
		Product:   api.Product(o.Product),
		Algo:      api.Algo(o.Algo),
		Priority:  api.Priority(o.Priority),
		Submitter: o.Submitter,
		Params:    params,
	}
	if o.ClientID != "" {
		id, err := uuid.Parse(o.ClientID)
		if err != nil {
			return fmt.Errorf("invalid --client-id: %w", err)
		}
		sub.ClientID = &id
	}
	if o.PortfolioID != "" {
		id, err := uuid.Parse(o.PortfolioID)
		if err != nil {
			return fmt.Errorf("invalid --portfolio-id: %w", err)
		}
		sub.PortfolioID = &id
	}

	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	job, err := c.SubmitJob(ctx, sub)
	if err != nil {
		return fmt.Errorf("submitting job: %w", err)
	}

	fmt.Fprintf(os.Stdout, "%s\n", job.ID)
	return nil
}

func (o *SubmitOptions) composeParams() (api.JobParams, error) {
	req := compose.Request{
		Type:    api.JobType(o.Type),
		Product: api.Product(o.Product),
		Algo:    api.Algo(o.Algo),
	}

	switch req.Type {
	case api.JobTypePortfolioOptimization:
		req.Optimization = &compose.OptimizationForm{
			Target:     o.Target,
			Constraint: compose.Constraint(o.Constraint),
		}

	default:
		if len(o.Legs) > 0 {
			req.Mode = compose.ModeChain
			form := &compose.ChainForm{R: o.Rate, Q: o.Dividend}
			for _, raw := range o.Legs {
				leg, err := parseLeg(raw)
				if err != nil {
					return nil, err
				}
				form.Legs = append(form.Legs, leg)
			}
			req.Chain = form
		} else {
			req.Mode = compose.ModeHistorical
			form := &compose.HistoricalForm{
				Ticker:     o.Ticker,
				OptionType: compose.OptionType(strings.ToUpper(o.OptionType)),
				Strike:     o.Strike,
				R:          o.Rate,
				Q:          o.Dividend,
			}
			if o.Expiry != "" {
				form.SetExpiry(o.Expiry)
			} else if o.MaturityYears != 0 {
				form.SetMaturityYears(o.MaturityYears)
			}
			if o.Sigma != 0 {
				sigma := o.Sigma
				form.Sigma = &sigma
			}
			req.Historical = form
		}

		switch req.Algo {
		case api.AlgoMonteCarlo:
			req.MonteCarlo = &compose.MonteCarloOpts{
				NumSteps:  o.NumSteps,
				NumPaths:  o.NumPaths,
				SavePaths: o.SavePaths,
			}
		case api.AlgoQAE:
			req.QAE = &compose.QAEOpts{
				Qubits:  o.Qubits,
				Shots:   o.Shots,
				Sampler: compose.SamplerKind(o.Sampler),
			}
		}
	}

	return compose.Compose(req)
}

func parseLeg(raw string) (compose.Leg, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 5 {
		return compose.Leg{}, fmt.Errorf("invalid --leg %q: want TICKER,EXPIRY,STRIKE,CALL|PUT,QTY", raw)
	}
	strike, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return compose.Leg{}, fmt.Errorf("invalid --leg strike %q: %w", parts[2], err)
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)
	if err != nil {
		return compose.Leg{}, fmt.Errorf("invalid --leg quantity %q: %w", parts[4], err)
	}
	return compose.Leg{
		Ticker:     strings.TrimSpace(parts[0]),
		Expiry:     strings.TrimSpace(parts[1]),
		Strike:     strike,
		OptionType: compose.OptionType(strings.ToUpper(strings.TrimSpace(parts[3]))),
		Quantity:   qty,
	}, nil
}
