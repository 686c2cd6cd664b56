package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

const (
	DefaultDashboardInterval = 15 * time.Second
)

// StatsClient is the slice of the SDK the dashboard aggregator needs.
type StatsClient interface {
	JobStats(ctx context.Context) (*api.JobStats, error)
	ClientStats(ctx context.Context) (*api.ClientStats, error)
}

// Snapshot is one dashboard refresh. A partial snapshot (one side failed)
// carries the data that did arrive plus the error.
type Snapshot struct {
	Jobs    *api.JobStats
	Clients *api.ClientStats
	Err     error
}

// DashboardAggregator polls the two stats endpoints on one slow, jittered
// cadence. Fetch errors are reported in the snapshot; the loop never stops on
// them.
type DashboardAggregator struct {
	client     StatsClient
	interval   time.Duration
	onSnapshot func(Snapshot)
	log        *zap.SugaredLogger

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewDashboardAggregator(c StatsClient, interval time.Duration, onSnapshot func(Snapshot)) *DashboardAggregator {
	if interval <= 0 {
		interval = DefaultDashboardInterval
	}
	return &DashboardAggregator{
		client:     c,
		interval:   interval,
		onSnapshot: onSnapshot,
		log:        zap.S().Named("dashboard"),
		done:       make(chan struct{}),
	}
}

func (d *DashboardAggregator) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		go d.run(ctx)
	})
}

// Stop cancels the loop and blocks until it has exited; no snapshot callback
// fires after Stop returns.
func (d *DashboardAggregator) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		<-d.done
	})
}

func (d *DashboardAggregator) run(ctx context.Context) {
	defer close(d.done)

	// first refresh happens immediately, then on the jittered cadence
	d.refresh(ctx)

	ticker := jitterbug.New(d.interval, &jitterbug.Norm{Stdev: d.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refresh(ctx)
		}
	}
}

func (d *DashboardAggregator) refresh(ctx context.Context) {
	snapshot := Snapshot{}

	jobs, err := d.client.JobStats(ctx)
	if err != nil {
		d.log.Debugw("job stats fetch failed", "error", err)
		snapshot.Err = errors.Join(snapshot.Err, err)
	} else {
		snapshot.Jobs = jobs
	}

	clients, err := d.client.ClientStats(ctx)
	if err != nil {
		d.log.Debugw("client stats fetch failed", "error", err)
		snapshot.Err = errors.Join(snapshot.Err, err)
	} else {
		snapshot.Clients = clients
	}

	select {
	case <-ctx.Done():
	default:
		d.onSnapshot(snapshot)
	}
}
