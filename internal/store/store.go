package store

import (
	"context"

	"gorm.io/gorm"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Client() Client
	Portfolio() Portfolio
	Asset() Asset
	PathBundle() PathBundle
	Statistics(ctx context.Context) (model.PlatformStats, error)
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	job        Job
	client     Client
	portfolio  Portfolio
	asset      Asset
	pathBundle PathBundle
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:         db,
		job:        NewJobStore(db),
		client:     NewClientStore(db),
		portfolio:  NewPortfolioStore(db),
		asset:      NewAssetStore(db),
		pathBundle: NewPathBundleStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Client() Client {
	return s.client
}

func (s *DataStore) Portfolio() Portfolio {
	return s.portfolio
}

func (s *DataStore) Asset() Asset {
	return s.asset
}

func (s *DataStore) PathBundle() PathBundle {
	return s.pathBundle
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Client{},
		&model.Portfolio{},
		&model.Asset{},
		&model.Job{},
		&model.PathBundle{},
	)
}

func (s *DataStore) Statistics(ctx context.Context) (model.PlatformStats, error) {
	jobStats, err := s.Job().Stats(ctx)
	if err != nil {
		return model.PlatformStats{}, err
	}

	stats := model.PlatformStats{
		TotalJobs:    jobStats.Total,
		JobsByStatus: make(map[string]int, len(api.AllJobStatuses)),
	}
	for status, count := range jobStats.ByStatus {
		stats.JobsByStatus[status] = count
	}

	if stats.Clients, err = s.Client().Count(ctx); err != nil {
		return model.PlatformStats{}, err
	}
	if stats.Portfolios, err = s.Portfolio().Count(ctx); err != nil {
		return model.PlatformStats{}, err
	}
	if stats.Assets, err = s.Asset().Count(ctx); err != nil {
		return model.PlatformStats{}, err
	}

	return stats, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
