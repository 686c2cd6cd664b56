package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quantdesk/quantjobs/internal/store/model"
)

type Asset interface {
	Upsert(ctx context.Context, asset model.Asset) (*model.Asset, error)
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) (model.AssetList, error)
	ListAll(ctx context.Context) (model.AssetList, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type AssetStore struct {
	db *gorm.DB
}

var _ Asset = (*AssetStore)(nil)

func NewAssetStore(db *gorm.DB) Asset {
	return &AssetStore{db: db}
}

// Upsert creates the asset or, when the (portfolio, ticker) pair already
// exists, replaces its quantity.
func (s *AssetStore) Upsert(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
	}).Create(&asset)
	if result.Error != nil {
		return nil, fmt.Errorf("upserting asset: %w", result.Error)
	}

	// re-read so the caller sees the surviving row id on conflict
	var saved model.Asset
	if result := s.getDB(ctx).
		Where("portfolio_id = ? AND ticker = ?", asset.PortfolioID, asset.Ticker).
		First(&saved); result.Error != nil {
		return nil, fmt.Errorf("reading asset: %w", result.Error)
	}
	return &saved, nil
}

func (s *AssetStore) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) (model.AssetList, error) {
	var assets model.AssetList
	result := s.getDB(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("ticker ASC").
		Find(&assets)
	if result.Error != nil {
		return nil, fmt.Errorf("listing assets: %w", result.Error)
	}
	return assets, nil
}

// ListAll returns the whole asset universe, used by unscoped optimization
// runs.
func (s *AssetStore) ListAll(ctx context.Context) (model.AssetList, error) {
	var assets model.AssetList
	if result := s.getDB(ctx).Order("ticker ASC").Find(&assets); result.Error != nil {
		return nil, fmt.Errorf("listing assets: %w", result.Error)
	}
	return assets, nil
}

func (s *AssetStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Asset{ID: id})
	if result.Error != nil {
		return fmt.Errorf("deleting asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *AssetStore) Count(ctx context.Context) (int, error) {
	var count int64
	if result := s.getDB(ctx).Model(&model.Asset{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("counting assets: %w", result.Error)
	}
	return int(count), nil
}

func (s *AssetStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
