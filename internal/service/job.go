package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/service/mappers"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/pkg/metrics"
)

const (
	DefaultPathsLimit  = 50
	DefaultPathsStride = 1
)

type JobService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewJobService(s store.Store) *JobService {
	return &JobService{
		store: s,
		log:   zap.S().Named("job_service"),
	}
}

var validAlgos = map[api.JobType]map[api.Algo]struct{}{
	api.JobTypeOptionPricing: {
		api.AlgoBlackScholes: {},
		api.AlgoMonteCarlo:   {},
		api.AlgoQAE:          {},
	},
	api.JobTypePortfolioOptimization: {
		api.AlgoMeanVariance: {},
		api.AlgoQUBO:         {},
		api.AlgoQAOA:         {},
	},
}

var validPriorities = map[api.Priority]struct{}{
	api.PriorityLow:    {},
	api.PriorityNormal: {},
	api.PriorityHigh:   {},
	api.PriorityUrgent: {},
}

// Submit validates a submission, denormalizes the owning client and portfolio
// names into the job row, and enqueues it as Pending.
func (s *JobService) Submit(ctx context.Context, sub api.JobSubmission) (*api.Job, error) {
	algos, ok := validAlgos[sub.Type]
	if !ok {
		return nil, NewErrInvalidRequest("unknown job type %q", sub.Type)
	}
	if _, ok := algos[sub.Algo]; !ok {
		return nil, NewErrInvalidRequest("algo %q is not valid for job type %q", sub.Algo, sub.Type)
	}
	if sub.Priority == "" {
		sub.Priority = api.PriorityNormal
	}
	if _, ok := validPriorities[sub.Priority]; !ok {
		return nil, NewErrInvalidRequest("unknown priority %q", sub.Priority)
	}
	if len(sub.Params) == 0 {
		return nil, NewErrInvalidRequest("params are required")
	}
	if sub.Submitter == "" {
		return nil, NewErrInvalidRequest("submitter is required")
	}

	job := mappers.JobFromSubmission(sub)

	if sub.ClientID != nil {
		client, err := s.store.Client().Get(ctx, *sub.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, NewErrClientNotFound(*sub.ClientID)
			}
			return nil, err
		}
		job.ClientName = client.Name
	}
	if sub.PortfolioID != nil {
		portfolio, err := s.store.Portfolio().Get(ctx, *sub.PortfolioID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, NewErrPortfolioNotFound(*sub.PortfolioID)
			}
			return nil, err
		}
		if sub.ClientID != nil && portfolio.ClientID != *sub.ClientID {
			return nil, NewErrInvalidRequest("portfolio %s does not belong to client %s", portfolio.ID, *sub.ClientID)
		}
		job.PortfolioName = portfolio.Name
	}

	created, err := s.store.Job().Create(ctx, job)
	if err != nil {
		return nil, err
	}

	metrics.IncreaseJobsSubmittedTotalMetric(string(sub.Type), string(sub.Algo))
	s.log.Infow("job submitted", "id", created.ID, "type", created.Type, "algo", created.Algo, "priority", created.Priority)

	out := mappers.JobToAPI(created)
	return &out, nil
}

func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	out := mappers.JobToAPI(job)
	return &out, nil
}

func (s *JobService) List(ctx context.Context, filter *store.JobQueryFilter) ([]api.Job, error) {
	jobs, err := s.store.Job().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mappers.JobListToAPI(jobs), nil
}

func (s *JobService) Stats(ctx context.Context) (*api.JobStats, error) {
	stats, err := s.store.Job().Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := mappers.JobStatsToAPI(stats)
	return &out, nil
}

// Paths returns a bounded subset of the stored simulation paths of a job.
// Limit and stride are normalized to sane values; totals always describe the
// full stored bundle.
func (s *JobService) Paths(ctx context.Context, jobID uuid.UUID, limit, stride int) (*api.PathsResponse, error) {
	if _, err := s.store.Job().Get(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	if limit < 1 {
		limit = DefaultPathsLimit
	}
	if stride < 1 {
		stride = DefaultPathsStride
	}

	resp, err := s.store.PathBundle().Subset(ctx, jobID, limit, stride)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrPathsNotFound(jobID)
		}
		return nil, err
	}
	return resp, nil
}
