package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	Name       string    `gorm:"not null"`
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Portfolios []Portfolio `gorm:"constraint:OnDelete:CASCADE;"`
}

type ClientList []Client

func (c Client) String() string {
	val, _ := json.Marshal(c)
	return string(val)
}

type Portfolio struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	ClientID  uuid.UUID `gorm:"not null;index"`
	Name      string    `gorm:"not null"`
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
	Assets    []Asset `gorm:"constraint:OnDelete:CASCADE;"`
}

type PortfolioList []Portfolio

func (p Portfolio) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}

type Asset struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	PortfolioID uuid.UUID `gorm:"not null;index:assets_portfolio_ticker,unique"`
	Ticker      string    `gorm:"not null;index:assets_portfolio_ticker,unique"`
	Quantity    float64
}

type AssetList []Asset

func (a Asset) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}
