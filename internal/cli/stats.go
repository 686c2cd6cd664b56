package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/watch"
)

type StatsOptions struct {
	GlobalOptions

	Watch    bool
	Interval time.Duration
}

func DefaultStatsOptions() *StatsOptions {
	return &StatsOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Interval:      watch.DefaultDashboardInterval,
	}
}

func NewCmdStats() *cobra.Command {
	o := DefaultStatsOptions()
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics: jobs by status, clients, portfolios, assets.",
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

func (o *StatsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVarP(&o.Watch, "watch", "w", o.Watch, "Keep refreshing on a slow cadence")
	fs.DurationVar(&o.Interval, "interval", o.Interval, "Refresh interval when watching")
}

func (o *StatsOptions) Run(ctx context.Context, _ []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	if !o.Watch {
		jobs, err := c.JobStats(ctx)
		if err != nil {
			return fmt.Errorf("fetching job stats: %w", err)
		}
		clients, err := c.ClientStats(ctx)
		if err != nil {
			return fmt.Errorf("fetching client stats: %w", err)
		}
		printSnapshot(watch.Snapshot{Jobs: jobs, Clients: clients})
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := watch.NewDashboardAggregator(c, o.Interval, printSnapshot)
	d.Start(ctx)
	defer d.Stop()

	<-ctx.Done()
	return nil
}

func printSnapshot(s watch.Snapshot) {
	if s.Err != nil {
		fmt.Fprintf(os.Stderr, "refresh error: %v\n", s.Err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
	if s.Jobs != nil {
		fmt.Fprintf(w, "jobs total\t%d\n", s.Jobs.Total)
		for _, status := range api.AllJobStatuses {
			fmt.Fprintf(w, "  %s\t%d\n", status, s.Jobs.ByStatus[status])
		}
	}
	if s.Clients != nil {
		fmt.Fprintf(w, "clients\t%d\n", s.Clients.Clients)
		fmt.Fprintf(w, "portfolios\t%d\n", s.Clients.Portfolios)
		fmt.Fprintf(w, "assets\t%d\n", s.Clients.Assets)
	}
	w.Flush()
}
