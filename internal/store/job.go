package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

const (
	listJobsLimit     = 200
	statsJobsLimit    = 10
	priorityOrderExpr = "CASE priority WHEN 'Urgent' THEN 3 WHEN 'High' THEN 2 WHEN 'Normal' THEN 1 ELSE 0 END DESC, created_at ASC"
)

type JobQueryFilter struct {
	clientID    *uuid.UUID
	portfolioID *uuid.UUID
	limit       int
}

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{limit: listJobsLimit}
}

func (f *JobQueryFilter) ByClientID(id uuid.UUID) *JobQueryFilter {
	f.clientID = &id
	return f
}

func (f *JobQueryFilter) ByPortfolioID(id uuid.UUID) *JobQueryFilter {
	f.portfolioID = &id
	return f
}

func (f *JobQueryFilter) WithLimit(limit int) *JobQueryFilter {
	f.limit = limit
	return f
}

func (f *JobQueryFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.clientID != nil {
		tx = tx.Where("client_id = ?", *f.clientID)
	}
	if f.portfolioID != nil {
		tx = tx.Where("portfolio_id = ?", *f.portfolioID)
	}
	return tx.Limit(f.limit)
}

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status api.JobStatus, result api.JobResult, errMsg string) (*model.Job, error)
	ClaimNextPending(ctx context.Context) (*model.Job, error)
	Stats(ctx context.Context) (model.JobStatsResult, error)
}

type JobStore struct {
	db *gorm.DB
}

var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = string(api.JobStatusPending)

	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&model.Job{})
	if filter != nil {
		tx = filter.apply(tx)
	}
	if result := tx.Order("created_at DESC").Find(&jobs); result.Error != nil {
		return nil, fmt.Errorf("listing jobs: %w", result.Error)
	}

	return jobs, nil
}

// UpdateStatus advances a job's status. Transitions are monotonic over
// Pending < Running < {Succeeded, Failed}; a regressing update, or any update
// to a job that is already terminal, is rejected with
// ErrInvalidStatusTransition. Result and error are mutually exclusive and only
// persisted on a terminal transition.
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status api.JobStatus, result api.JobResult, errMsg string) (*model.Job, error) {
	ctx, err := newTransactionContext(ctx, s.db)
	if err != nil {
		return nil, err
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		_, _ = Rollback(ctx)
		return nil, err
	}

	current := api.StringToJobStatus(job.Status)
	if current == api.JobStatusSucceeded || current == api.JobStatusFailed {
		_, _ = Rollback(ctx)
		return nil, ErrInvalidStatusTransition
	}
	if status != current && current.Rank() >= status.Rank() {
		_, _ = Rollback(ctx)
		return nil, ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	job.Status = string(status)
	job.UpdatedAt = now

	if status == api.JobStatusRunning && job.StartedAt == nil {
		job.StartedAt = &now
	}

	if status == api.JobStatusSucceeded || status == api.JobStatusFailed {
		job.FinishedAt = &now
		base := job.CreatedAt
		if job.StartedAt != nil {
			base = *job.StartedAt
		}
		duration := int64(now.Sub(base).Seconds())
		if duration < 0 {
			duration = 0
		}
		job.DurationSec = &duration

		if status == api.JobStatusSucceeded {
			job.Result = model.MakeJSONField(result)
			job.Error = nil
		} else {
			job.Result = nil
			job.Error = &errMsg
		}
	}

	if saveResult := s.getDB(ctx).Save(job); saveResult.Error != nil {
		_, _ = Rollback(ctx)
		return nil, fmt.Errorf("updating job status: %w", saveResult.Error)
	}

	if _, err := Commit(ctx); err != nil {
		return nil, err
	}

	return job, nil
}

// ClaimNextPending picks the highest-priority oldest Pending job and marks it
// Running. The claim itself is a guarded update on (id, status), so two
// concurrent claimers can never win the same row: the loser sees zero affected
// rows and moves on to the next candidate. Returns ErrNoPendingJobs when the
// queue is empty.
func (s *JobStore) ClaimNextPending(ctx context.Context) (*model.Job, error) {
	for {
		var job model.Job
		result := s.getDB(ctx).
			Where("status = ?", string(api.JobStatusPending)).
			Order(priorityOrderExpr).
			First(&job)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, ErrNoPendingJobs
			}
			return nil, fmt.Errorf("claiming job: %w", result.Error)
		}

		now := time.Now().UTC()
		claim := s.getDB(ctx).Model(&model.Job{}).
			Where("id = ? AND status = ?", job.ID, string(api.JobStatusPending)).
			Updates(map[string]any{
				"status":     string(api.JobStatusRunning),
				"started_at": now,
				"updated_at": now,
			})
		if claim.Error != nil {
			return nil, fmt.Errorf("claiming job: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			// another claimer won this row between the select and the update
			continue
		}

		job.Status = string(api.JobStatusRunning)
		job.StartedAt = &now
		job.UpdatedAt = now
		return &job, nil
	}
}

func (s *JobStore) Stats(ctx context.Context) (model.JobStatsResult, error) {
	stats := model.JobStatsResult{
		ByStatus: make(map[string]int, len(api.AllJobStatuses)),
	}
	for _, status := range api.AllJobStatuses {
		stats.ByStatus[string(status)] = 0
	}

	type statusCount struct {
		Status string
		Count  int
	}
	var counts []statusCount
	result := s.getDB(ctx).Model(&model.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&counts)
	if result.Error != nil {
		return model.JobStatsResult{}, fmt.Errorf("counting jobs: %w", result.Error)
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}

	if result := s.getDB(ctx).Model(&model.Job{}).
		Order("created_at DESC").
		Limit(statsJobsLimit).
		Find(&stats.Recent); result.Error != nil {
		return model.JobStatsResult{}, fmt.Errorf("listing recent jobs: %w", result.Error)
	}

	if result := s.getDB(ctx).Model(&model.Job{}).
		Where("status = ?", string(api.JobStatusRunning)).
		Order("updated_at DESC").
		Limit(statsJobsLimit).
		Find(&stats.Running); result.Error != nil {
		return model.JobStatsResult{}, fmt.Errorf("listing running jobs: %w", result.Error)
	}

	return stats, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
