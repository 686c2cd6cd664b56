package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

type Job struct {
	ID            uuid.UUID `gorm:"primaryKey"`
	ClientID      *uuid.UUID
	ClientName    string
	PortfolioID   *uuid.UUID
	PortfolioName string
	Type          string `gorm:"not null;index"`
	Product       string
	Algo          string `gorm:"not null"`
	Priority      string `gorm:"not null"`
	Submitter     string
	Status        string `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	DurationSec   *int64
	Params        *JSONField[api.JobParams] `gorm:"type:jsonb"`
	Result        *JSONField[api.JobResult] `gorm:"type:jsonb"`
	Error         *string
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
