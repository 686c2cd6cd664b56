package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

type PathBundle interface {
	Create(ctx context.Context, bundle model.PathBundle) (*model.PathBundle, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.PathBundle, error)
	// Subset returns a bounded view of the bundle owned by jobID: the first
	// `limit` paths, every `stride`-th step. The returned totals are the full
	// bundle dimensions, never the subset's.
	Subset(ctx context.Context, jobID uuid.UUID, limit, stride int) (*api.PathsResponse, error)
}

type PathBundleStore struct {
	db *gorm.DB
}

var _ PathBundle = (*PathBundleStore)(nil)

func NewPathBundleStore(db *gorm.DB) PathBundle {
	return &PathBundleStore{db: db}
}

func (s *PathBundleStore) Create(ctx context.Context, bundle model.PathBundle) (*model.PathBundle, error) {
	if bundle.ID == uuid.Nil {
		bundle.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&bundle); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating path bundle: %w", result.Error)
	}
	return &bundle, nil
}

func (s *PathBundleStore) GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.PathBundle, error) {
	var bundle model.PathBundle
	result := s.getDB(ctx).First(&bundle, "job_id = ?", jobID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying path bundle: %w", result.Error)
	}
	return &bundle, nil
}

func (s *PathBundleStore) Subset(ctx context.Context, jobID uuid.UUID, limit, stride int) (*api.PathsResponse, error) {
	bundle, err := s.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = 1
	}
	if stride < 1 {
		stride = 1
	}

	var grid []float64
	if bundle.TimeGrid != nil {
		grid = bundle.TimeGrid.Data
	}
	var values [][]float64
	if bundle.Values != nil {
		values = bundle.Values.Data
	}

	if limit > len(values) {
		limit = len(values)
	}

	t := subsampleSteps(grid, stride)
	series := make([][]float64, 0, limit)
	for i := 0; i < limit; i++ {
		series = append(series, subsampleSteps(values[i], stride))
	}

	return &api.PathsResponse{
		T:          t,
		Series:     series,
		NTotal:     bundle.NPaths,
		StepsTotal: bundle.Steps,
	}, nil
}

func subsampleSteps(row []float64, stride int) []float64 {
	if stride <= 1 {
		out := make([]float64, len(row))
		copy(out, row)
		return out
	}
	out := make([]float64, 0, (len(row)+stride-1)/stride)
	for i := 0; i < len(row); i += stride {
		out = append(out, row[i])
	}
	return out
}

func (s *PathBundleStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
