package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/interpret"
	"github.com/quantdesk/quantjobs/internal/watch"
)

type WatchOptions struct {
	GlobalOptions

	Interval time.Duration
	Limit    int
	Stride   int
}

func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Interval:      watch.DefaultJobInterval,
	}
}

func NewCmdWatch() *cobra.Command {
	o := DefaultWatchOptions()
	cmd := &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Poll a job until it finishes, printing status and result.",
		Args:  cobra.ExactArgs(1),
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

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.DurationVar(&o.Interval, "interval", o.Interval, "Polling interval")
	fs.IntVar(&o.Limit, "limit", o.Limit, "Number of simulated paths to fetch when available")
	fs.IntVar(&o.Stride, "stride", o.Stride, "Step sub-sampling of fetched paths")
}

func (o *WatchOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if _, err := uuid.Parse(args[0]); err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}
	return nil
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	jobID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}

	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	var lastStatus api.JobStatus

	w := watch.NewJobWatcher(c, jobID, o.Interval, func(u watch.JobUpdate) {
		if u.Err != nil {
			fmt.Fprintf(os.Stderr, "poll error: %v\n", u.Err)
			return
		}
		if u.Job == nil {
			return
		}
		if u.Job.Status != lastStatus {
			lastStatus = u.Job.Status
			fmt.Fprintf(os.Stdout, "%s\t%s\n", time.Now().Format(time.TimeOnly), u.Job.Status)
		}
		if u.Job.Terminal() {
			printOutcome(u)
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})
	if o.Limit > 0 {
		w.SetLimit(o.Limit)
	}
	if o.Stride > 0 {
		w.SetStride(o.Stride)
	}
	w.Start(ctx)
	defer w.Stop()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

func printOutcome(u watch.JobUpdate) {
	if u.Job.Status == api.JobStatusFailed {
		fmt.Fprintf(os.Stdout, "failed: %s\n", u.Job.Error)
		return
	}

	switch u.Result.Kind {
	case interpret.KindSingleInstrument:
		s := u.Result.Single
		fmt.Fprintf(os.Stdout, "price: %.4f", s.Price)
		if s.StdErr > 0 {
			fmt.Fprintf(os.Stdout, " +/- %.4f", s.StdErr)
		}
		fmt.Fprintln(os.Stdout)

	case interpret.KindMultiLeg:
		for _, leg := range u.Result.MultiLeg.Legs {
			fmt.Fprintf(os.Stdout, "leg %d\t%s\t%s %.2f\tqty %.1f\tprice %.4f\n",
				leg.Leg, leg.Ticker, leg.OptionType, leg.Strike, leg.Quantity, leg.Price)
		}
		if t := u.Result.MultiLeg.Totals; t != nil {
			fmt.Fprintf(os.Stdout, "notional: %.4f\tweighted avg: %.4f\n", t.Notional, t.WeightedAvg)
		}

	case interpret.KindOptimizationWeights:
		for ticker, weight := range u.Result.Optimization.Weights {
			fmt.Fprintf(os.Stdout, "%s\t%.4f\n", ticker, weight)
		}
		fmt.Fprintf(os.Stdout, "expected return: %.4f\tvariance: %.6f\n",
			u.Result.Optimization.ExpectedReturn, u.Result.Optimization.Variance)

	default:
		fmt.Fprintf(os.Stdout, "result: %v\n", u.Result.Raw)
	}

	if u.Paths != nil {
		fmt.Fprintf(os.Stdout, "paths: %d of %d fetched, %d steps of %d\n",
			len(u.Paths.Columns)-1, u.Paths.NTotal, len(u.Paths.Rows), u.Paths.StepsTotal)
	}
}
