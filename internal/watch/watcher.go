// Package watch owns the polling loops of the client: a per-job watcher on a
// fast cadence and a dashboard aggregator on a slow one. Both poll
// level-triggered: each cycle fetches current state, and the next cycle is
// scheduled only after the previous fetch and callback have finished, so a
// slow server stretches the effective period instead of stacking requests.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/interpret"
	"github.com/quantdesk/quantjobs/internal/sample"
)

const (
	DefaultJobInterval = 2 * time.Second
)

// JobClient is the slice of the SDK a job watcher needs.
type JobClient interface {
	GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error)
	JobPaths(ctx context.Context, id uuid.UUID, limit, stride int) (*api.PathsResponse, error)
}

// JobUpdate is delivered to the watcher's callback once per completed cycle.
// Err is set when the fetch failed; the watcher keeps polling regardless.
type JobUpdate struct {
	Job    *api.Job
	Result interpret.Result
	Paths  *sample.Table
	Err    error
}

// JobWatcher polls a single job until it is stopped. Every cycle re-fetches
// the full current state, terminal or not; a finished job is just a cheap
// unchanged fetch, and the owner decides when to stop watching.
type JobWatcher struct {
	client   JobClient
	jobID    uuid.UUID
	interval time.Duration
	onUpdate func(JobUpdate)
	log      *zap.SugaredLogger

	mu        sync.Mutex
	sampleReq sample.Request

	sampleChanged chan struct{}
	cancel        context.CancelFunc
	done          chan struct{}
	startOnce     sync.Once
	stopOnce      sync.Once
}

func NewJobWatcher(c JobClient, jobID uuid.UUID, interval time.Duration, onUpdate func(JobUpdate)) *JobWatcher {
	if interval <= 0 {
		interval = DefaultJobInterval
	}
	return &JobWatcher{
		client:        c,
		jobID:         jobID,
		interval:      interval,
		onUpdate:      onUpdate,
		log:           zap.S().Named("job_watcher"),
		sampleReq:     sample.Request{}.Normalize(),
		sampleChanged: make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start launches the polling loop. Subsequent calls are no-ops.
func (w *JobWatcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		go w.run(ctx)
	})
}

// Stop cancels the loop and blocks until it has exited. Once Stop returns, no
// further callback will fire.
func (w *JobWatcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}

// SetLimit changes the number of paths requested; the new value takes effect
// on the next cycle, which is scheduled immediately.
func (w *JobWatcher) SetLimit(limit int) {
	w.mu.Lock()
	w.sampleReq = sample.Request{Limit: limit, Stride: w.sampleReq.Stride}.Normalize()
	w.mu.Unlock()
	w.nudge()
}

// SetStride changes the step sub-sampling; the new value takes effect on the
// next cycle, which is scheduled immediately.
func (w *JobWatcher) SetStride(stride int) {
	w.mu.Lock()
	w.sampleReq = sample.Request{Limit: w.sampleReq.Limit, Stride: stride}.Normalize()
	w.mu.Unlock()
	w.nudge()
}

func (w *JobWatcher) nudge() {
	select {
	case w.sampleChanged <- struct{}{}:
	default:
	}
}

func (w *JobWatcher) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	var lastJob *api.Job
	var lastResult interpret.Result
	var lastPaths *sample.Table

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-w.sampleChanged:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		update := w.cycle(ctx, &lastJob, &lastResult, &lastPaths)

		// deliver only while still live; Stop must win the race
		select {
		case <-ctx.Done():
			return
		default:
			w.onUpdate(update)
		}

		timer.Reset(w.interval)
	}
}

// cycle performs one fetch round: the job itself, then the path subset when
// the result references a bundle. The last known state is kept for error
// updates only; the job fetch itself is never skipped.
func (w *JobWatcher) cycle(ctx context.Context, lastJob **api.Job, lastResult *interpret.Result, lastPaths **sample.Table) JobUpdate {
	job, err := w.client.GetJob(ctx, w.jobID)
	if err != nil {
		w.log.Debugw("job fetch failed", "job", w.jobID, "error", err)
		return JobUpdate{Job: *lastJob, Result: *lastResult, Paths: *lastPaths, Err: err}
	}
	*lastJob = job
	*lastResult = interpret.ClassifyJob(job)

	w.mu.Lock()
	req := w.sampleReq
	w.mu.Unlock()

	if sample.Applicable(*lastResult) != nil {
		table, err := sample.Fetch(ctx, w.client, w.jobID, req)
		if err != nil {
			w.log.Debugw("paths fetch failed", "job", w.jobID, "error", err)
			return JobUpdate{Job: *lastJob, Result: *lastResult, Paths: *lastPaths, Err: err}
		}
		*lastPaths = table
	}

	return JobUpdate{Job: *lastJob, Result: *lastResult, Paths: *lastPaths}
}
