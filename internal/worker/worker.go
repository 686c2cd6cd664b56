// Package worker claims Pending jobs from the store and executes them. It is
// the in-process stand-in for a distributed compute fleet: a small pool of
// goroutines, each polling the claim queue on a jittered ticker.
package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/config"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
	"github.com/quantdesk/quantjobs/pkg/metrics"
)

// JobFailure marks an execution error whose message is safe to surface as the
// job's error field. Anything else is reported as an internal error.
type JobFailure struct {
	error
}

func NewJobFailure(err error) *JobFailure {
	return &JobFailure{err}
}

type Worker struct {
	store       store.Store
	market      market.Provider
	concurrency int
	interval    time.Duration
	log         *zap.SugaredLogger
}

func New(s store.Store, m market.Provider, cfg *config.Config) *Worker {
	return &Worker{
		store:       s,
		market:      m,
		concurrency: cfg.Worker.Concurrency,
		interval:    time.Duration(cfg.Worker.ClaimIntervalMs) * time.Millisecond,
		log:         zap.S().Named("worker"),
	}
}

// Run blocks until ctx is cancelled, claiming and executing jobs with the
// configured concurrency.
func (w *Worker) Run(ctx context.Context) {
	w.log.Infof("starting worker pool: concurrency=%d claim_interval=%s", w.concurrency, w.interval)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.runLoop(ctx, slot)
		}(i)
	}
	wg.Wait()
	w.log.Info("worker pool stopped")
}

func (w *Worker) runLoop(ctx context.Context, slot int) {
	ticker := jitterbug.New(w.interval, &jitterbug.Norm{Stdev: w.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			job, err := w.store.Job().ClaimNextPending(ctx)
			if err != nil {
				if !errors.Is(err, store.ErrNoPendingJobs) {
					w.log.Errorf("slot %d: claiming job: %v", slot, err)
				}
				break
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *model.Job) {
	log := w.log.With("job", job.ID, "type", job.Type, "algo", job.Algo)
	log.Info("executing job")

	result, err := w.execute(ctx, job)
	if err != nil {
		msg := "internal error"
		var failure *JobFailure
		if errors.As(err, &failure) {
			msg = failure.Error()
		}
		log.Warnf("job failed: %v", err)
		if _, uerr := w.store.Job().UpdateStatus(ctx, job.ID, api.JobStatusFailed, nil, msg); uerr != nil {
			log.Errorf("recording job failure: %v", uerr)
			return
		}
		metrics.IncreaseJobsFinishedTotalMetric(string(api.JobStatusFailed))
		return
	}

	if _, err := w.store.Job().UpdateStatus(ctx, job.ID, api.JobStatusSucceeded, result, ""); err != nil {
		log.Errorf("recording job result: %v", err)
		return
	}
	metrics.IncreaseJobsFinishedTotalMetric(string(api.JobStatusSucceeded))
	log.Info("job succeeded")
}

func (w *Worker) execute(ctx context.Context, job *model.Job) (api.JobResult, error) {
	switch api.JobType(job.Type) {
	case api.JobTypeOptionPricing:
		return w.executePricing(ctx, job)
	case api.JobTypePortfolioOptimization:
		return w.executeOptimization(ctx, job)
	default:
		return nil, NewJobFailure(errors.New("unknown job type " + job.Type))
	}
}

// jobSeed derives a stable RNG seed from the job id so re-running a job in a
// debugger reproduces its simulation.
func jobSeed(job *model.Job) int64 {
	b := job.ID[:]
	return int64(binary.BigEndian.Uint64(b[:8]))
}
