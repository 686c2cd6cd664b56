package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/compose"
	"github.com/quantdesk/quantjobs/internal/service/mappers"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

type PortfolioService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewPortfolioService(s store.Store) *PortfolioService {
	return &PortfolioService{
		store: s,
		log:   zap.S().Named("portfolio_service"),
	}
}

func (s *PortfolioService) Create(ctx context.Context, clientID uuid.UUID, form api.PortfolioForm) (*api.Portfolio, error) {
	if _, err := s.store.Client().Get(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(clientID)
		}
		return nil, err
	}

	portfolio, err := s.store.Portfolio().Create(ctx, model.Portfolio{
		ClientID: clientID,
		Name:     form.Name,
		Currency: form.Currency,
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("portfolio created", "id", portfolio.ID, "client", clientID, "name", portfolio.Name)
	out := mappers.PortfolioToAPI(portfolio)
	return &out, nil
}

func (s *PortfolioService) Get(ctx context.Context, id uuid.UUID) (*api.Portfolio, error) {
	portfolio, err := s.store.Portfolio().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrPortfolioNotFound(id)
		}
		return nil, err
	}
	out := mappers.PortfolioToAPI(portfolio)
	return &out, nil
}

func (s *PortfolioService) ListByClient(ctx context.Context, clientID uuid.UUID) ([]api.Portfolio, error) {
	if _, err := s.store.Client().Get(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(clientID)
		}
		return nil, err
	}

	portfolios, err := s.store.Portfolio().ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return mappers.PortfolioListToAPI(portfolios), nil
}

func (s *PortfolioService) Update(ctx context.Context, id uuid.UUID, form api.PortfolioForm) (*api.Portfolio, error) {
	portfolio, err := s.store.Portfolio().Update(ctx, model.Portfolio{
		ID:       id,
		Name:     form.Name,
		Currency: form.Currency,
	})
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrPortfolioNotFound(id)
		}
		return nil, err
	}
	out := mappers.PortfolioToAPI(portfolio)
	return &out, nil
}

func (s *PortfolioService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Portfolio().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrPortfolioNotFound(id)
		}
		return err
	}
	s.log.Infow("portfolio deleted", "id", id)
	return nil
}

func (s *PortfolioService) UpsertAsset(ctx context.Context, portfolioID uuid.UUID, form api.AssetForm) (*api.Asset, error) {
	if _, err := s.store.Portfolio().Get(ctx, portfolioID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrPortfolioNotFound(portfolioID)
		}
		return nil, err
	}

	ticker := compose.NormalizeTicker(form.Ticker)
	if ticker == "" {
		return nil, NewErrInvalidRequest("ticker is required")
	}

	asset, err := s.store.Asset().Upsert(ctx, model.Asset{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Quantity:    form.Quantity,
	})
	if err != nil {
		return nil, err
	}
	out := mappers.AssetToAPI(asset)
	return &out, nil
}

func (s *PortfolioService) ListAssets(ctx context.Context, portfolioID uuid.UUID) ([]api.Asset, error) {
	if _, err := s.store.Portfolio().Get(ctx, portfolioID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrPortfolioNotFound(portfolioID)
		}
		return nil, err
	}

	assets, err := s.store.Asset().ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return mappers.AssetListToAPI(assets), nil
}

func (s *PortfolioService) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Asset().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrAssetNotFound(id)
		}
		return err
	}
	return nil
}
