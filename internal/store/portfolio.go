package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quantdesk/quantjobs/internal/store/model"
)

type Portfolio interface {
	Create(ctx context.Context, portfolio model.Portfolio) (*model.Portfolio, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Portfolio, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) (model.PortfolioList, error)
	Update(ctx context.Context, portfolio model.Portfolio) (*model.Portfolio, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type PortfolioStore struct {
	db *gorm.DB
}

var _ Portfolio = (*PortfolioStore)(nil)

func NewPortfolioStore(db *gorm.DB) Portfolio {
	return &PortfolioStore{db: db}
}

func (s *PortfolioStore) Create(ctx context.Context, portfolio model.Portfolio) (*model.Portfolio, error) {
	if portfolio.ID == uuid.Nil {
		portfolio.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&portfolio); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating portfolio: %w", result.Error)
	}
	return &portfolio, nil
}

func (s *PortfolioStore) Get(ctx context.Context, id uuid.UUID) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	if result := s.getDB(ctx).First(&portfolio, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying portfolio: %w", result.Error)
	}
	return &portfolio, nil
}

func (s *PortfolioStore) ListByClient(ctx context.Context, clientID uuid.UUID) (model.PortfolioList, error) {
	var portfolios model.PortfolioList
	result := s.getDB(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&portfolios)
	if result.Error != nil {
		return nil, fmt.Errorf("listing portfolios: %w", result.Error)
	}
	return portfolios, nil
}

func (s *PortfolioStore) Update(ctx context.Context, portfolio model.Portfolio) (*model.Portfolio, error) {
	existing, err := s.Get(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}

	if portfolio.Name != "" {
		existing.Name = portfolio.Name
	}
	if portfolio.Currency != "" {
		existing.Currency = portfolio.Currency
	}

	if result := s.getDB(ctx).Save(existing); result.Error != nil {
		return nil, fmt.Errorf("updating portfolio: %w", result.Error)
	}
	return existing, nil
}

func (s *PortfolioStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Portfolio{ID: id})
	if result.Error != nil {
		return fmt.Errorf("deleting portfolio: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PortfolioStore) Count(ctx context.Context) (int, error) {
	var count int64
	if result := s.getDB(ctx).Model(&model.Portfolio{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("counting portfolios: %w", result.Error)
	}
	return int(count), nil
}

func (s *PortfolioStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
