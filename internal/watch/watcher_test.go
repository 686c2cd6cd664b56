package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/client"
	"github.com/quantdesk/quantjobs/internal/interpret"
)

type fakeJobClient struct {
	mu         sync.Mutex
	job        api.Job
	paths      *api.PathsResponse
	jobCalls   int32
	pathCalls  int32
	inFlight   int32
	maxFlight  int32
	fetchDelay time.Duration
	lastLimit  int
	lastStride int
}

func (f *fakeJobClient) GetJob(_ context.Context, _ uuid.UUID) (*api.Job, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxFlight, max, cur) {
			break
		}
	}
	if f.fetchDelay > 0 {
		time.Sleep(f.fetchDelay)
	}
	atomic.AddInt32(&f.jobCalls, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.job
	return &job, nil
}

func (f *fakeJobClient) JobPaths(_ context.Context, _ uuid.UUID, limit, stride int) (*api.PathsResponse, error) {
	atomic.AddInt32(&f.pathCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	f.lastStride = stride
	if f.paths == nil {
		return nil, &client.ErrAPI{StatusCode: 404, Message: "no stored paths"}
	}
	return f.paths, nil
}

func (f *fakeJobClient) setStatus(status api.JobStatus, result api.JobResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job.Status = status
	f.job.Result = result
}

func pendingJob() api.Job {
	return api.Job{
		ID:     uuid.New(),
		Type:   api.JobTypeOptionPricing,
		Algo:   api.AlgoMonteCarlo,
		Status: api.JobStatusPending,
	}
}

func TestWatcherDeliversStatusProgression(t *testing.T) {
	fake := &fakeJobClient{job: pendingJob()}

	var mu sync.Mutex
	var seen []api.JobStatus
	w := NewJobWatcher(fake, fake.job.ID, 10*time.Millisecond, func(u JobUpdate) {
		mu.Lock()
		defer mu.Unlock()
		if u.Job != nil {
			seen = append(seen, u.Job.Status)
		}
	})
	w.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	fake.setStatus(api.JobStatusRunning, nil)
	time.Sleep(30 * time.Millisecond)
	fake.setStatus(api.JobStatusSucceeded, api.JobResult{"price": 1.5})
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Contains(t, seen, api.JobStatusPending)
	assert.Contains(t, seen, api.JobStatusSucceeded)

	// statuses never regress in delivery order
	last := -1
	for _, s := range seen {
		rank := int(s.Rank())
		assert.GreaterOrEqual(t, rank, last)
		last = rank
	}
}

func TestWatcherKeepsFetchingAfterTerminal(t *testing.T) {
	fake := &fakeJobClient{job: pendingJob()}
	fake.setStatus(api.JobStatusSucceeded, api.JobResult{"price": 2.5})

	w := NewJobWatcher(fake, fake.job.ID, 5*time.Millisecond, func(JobUpdate) {})
	w.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	w.Stop()

	// terminal status never stops the loop; each tick re-fetches the job
	assert.Greater(t, atomic.LoadInt32(&fake.jobCalls), int32(1))
}

func TestWatcherNoCallbackAfterStop(t *testing.T) {
	fake := &fakeJobClient{job: pendingJob(), fetchDelay: 5 * time.Millisecond}

	var count int32
	w := NewJobWatcher(fake, fake.job.ID, 5*time.Millisecond, func(JobUpdate) {
		atomic.AddInt32(&count, 1)
	})
	w.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	w.Stop()

	after := atomic.LoadInt32(&count)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count))
}

func TestWatcherSingleInFlightFetch(t *testing.T) {
	fake := &fakeJobClient{job: pendingJob(), fetchDelay: 10 * time.Millisecond}

	w := NewJobWatcher(fake, fake.job.ID, time.Millisecond, func(JobUpdate) {})
	w.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	w.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.maxFlight))
}

func TestWatcherFetchesPathsForMonteCarloResult(t *testing.T) {
	fake := &fakeJobClient{
		job: pendingJob(),
		paths: &api.PathsResponse{
			T:          []float64{0, 1},
			Series:     [][]float64{{100, 101}},
			NTotal:     50000,
			StepsTotal: 253,
		},
	}
	fake.setStatus(api.JobStatusSucceeded, api.JobResult{
		"price": 1.5,
		"paths": map[string]any{"bundle_id": "b1", "n_paths": 50000, "steps": 253},
	})

	var mu sync.Mutex
	var lastUpdate JobUpdate
	w := NewJobWatcher(fake, fake.job.ID, 5*time.Millisecond, func(u JobUpdate) {
		mu.Lock()
		defer mu.Unlock()
		lastUpdate = u
	})
	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	w.SetLimit(25)
	w.SetStride(4)
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, interpret.KindSingleInstrument, lastUpdate.Result.Kind)
	require.NotNil(t, lastUpdate.Paths)
	assert.Equal(t, 50000, lastUpdate.Paths.NTotal)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 25, fake.lastLimit)
	assert.Equal(t, 4, fake.lastStride)
}

func TestWatcherMissingBundleDegradesToNil(t *testing.T) {
	fake := &fakeJobClient{job: pendingJob()}
	fake.setStatus(api.JobStatusSucceeded, api.JobResult{
		"price": 1.5,
		"paths": map[string]any{"bundle_id": "gone", "n_paths": 10, "steps": 3},
	})

	var mu sync.Mutex
	var lastUpdate JobUpdate
	w := NewJobWatcher(fake, fake.job.ID, 5*time.Millisecond, func(u JobUpdate) {
		mu.Lock()
		defer mu.Unlock()
		lastUpdate = u
	})
	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, lastUpdate.Err)
	assert.Nil(t, lastUpdate.Paths)
}

type fakeStatsClient struct {
	mu         sync.Mutex
	jobsErr    error
	clientsErr error
	snapshots  int32
}

func (f *fakeStatsClient) JobStats(context.Context) (*api.JobStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return &api.JobStats{Total: 3}, nil
}

func (f *fakeStatsClient) ClientStats(context.Context) (*api.ClientStats, error) {
	atomic.AddInt32(&f.snapshots, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clientsErr != nil {
		return nil, f.clientsErr
	}
	return &api.ClientStats{Clients: 2}, nil
}

func TestDashboardAggregatorCombinesBothEndpoints(t *testing.T) {
	fake := &fakeStatsClient{}

	var mu sync.Mutex
	var last Snapshot
	d := NewDashboardAggregator(fake, 10*time.Millisecond, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})
	d.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, last.Jobs)
	require.NotNil(t, last.Clients)
	assert.Equal(t, 3, last.Jobs.Total)
	assert.Equal(t, 2, last.Clients.Clients)
	assert.NoError(t, last.Err)
}

func TestDashboardAggregatorSurvivesErrors(t *testing.T) {
	fake := &fakeStatsClient{jobsErr: &client.ErrAPI{StatusCode: 500, Message: "boom"}}

	var mu sync.Mutex
	var last Snapshot
	d := NewDashboardAggregator(fake, 10*time.Millisecond, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})
	d.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Error(t, last.Err)
	assert.Nil(t, last.Jobs)
	assert.NotNil(t, last.Clients)
	mu.Unlock()

	// loop kept polling despite the failing endpoint
	assert.Greater(t, atomic.LoadInt32(&fake.snapshots), int32(1))
	d.Stop()
}

func TestDashboardReportsEveryFailedEndpoint(t *testing.T) {
	fake := &fakeStatsClient{
		jobsErr:    &client.ErrAPI{StatusCode: 500, Message: "jobs down"},
		clientsErr: &client.ErrAPI{StatusCode: 500, Message: "clients down"},
	}

	var mu sync.Mutex
	var last Snapshot
	d := NewDashboardAggregator(fake, 10*time.Millisecond, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})
	d.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Error(t, last.Err)
	assert.ErrorContains(t, last.Err, "jobs down")
	assert.ErrorContains(t, last.Err, "clients down")
	assert.Nil(t, last.Jobs)
	assert.Nil(t, last.Clients)
}

func TestDashboardNoCallbackAfterStop(t *testing.T) {
	fake := &fakeStatsClient{}

	var count int32
	d := NewDashboardAggregator(fake, 5*time.Millisecond, func(Snapshot) {
		atomic.AddInt32(&count, 1)
	})
	d.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	d.Stop()

	after := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count))
}
