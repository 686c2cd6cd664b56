package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeOptionPricing         JobType = "OptionPricing"
	JobTypePortfolioOptimization JobType = "PortfolioOptimization"
)

type Product string

const (
	ProductEuropean Product = "European"
	ProductAmerican Product = "American"
	ProductAsian    Product = "Asian"
	ProductBarrier  Product = "Barrier"
	ProductBasket   Product = "Basket"
)

type Algo string

const (
	AlgoBlackScholes Algo = "BlackScholes"
	AlgoMonteCarlo   Algo = "MonteCarlo"
	AlgoQAE          Algo = "QAE"
	AlgoMeanVariance Algo = "MeanVariance"
	AlgoQUBO         Algo = "QUBO"
	AlgoQAOA         Algo = "QAOA"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "Pending"
	JobStatusRunning   JobStatus = "Running"
	JobStatusSucceeded JobStatus = "Succeeded"
	JobStatusFailed    JobStatus = "Failed"
)

// JobParams is the opaque, algorithm-dependent parameter payload of a job.
// Its shape is fixed by the composer; the server never interprets fields it
// does not know about.
type JobParams map[string]any

// JobResult is the raw result payload of a terminal job. Structural
// classification of its shape is done client-side by the interpret package.
type JobResult map[string]any

type Job struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      *uuid.UUID `json:"clientId,omitempty"`
	ClientName    string     `json:"clientName,omitempty"`
	PortfolioID   *uuid.UUID `json:"portfolioId,omitempty"`
	PortfolioName string     `json:"portfolioName,omitempty"`
	Type          JobType    `json:"type"`
	Product       Product    `json:"product,omitempty"`
	Algo          Algo       `json:"algo"`
	Priority      Priority   `json:"priority"`
	Submitter     string     `json:"submitter"`
	Status        JobStatus  `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	DurationSec   *int64     `json:"durationSec,omitempty"`
	Params        JobParams  `json:"params"`
	Result        JobResult  `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Terminal reports whether no further status transitions can occur.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// JobSubmission is the body of POST /api/v1/jobs.
type JobSubmission struct {
	Type        JobType    `json:"type"`
	Product     Product    `json:"product,omitempty"`
	Algo        Algo       `json:"algo"`
	Priority    Priority   `json:"priority"`
	Submitter   string     `json:"submitter"`
	ClientID    *uuid.UUID `json:"clientId,omitempty"`
	PortfolioID *uuid.UUID `json:"portfolioId,omitempty"`
	Params      JobParams  `json:"params"`
}

type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ClientForm struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type Portfolio struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"clientId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PortfolioForm struct {
	Name     string `json:"name" validate:"required"`
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type Asset struct {
	ID          uuid.UUID `json:"id"`
	PortfolioID uuid.UUID `json:"portfolioId"`
	Ticker      string    `json:"ticker"`
	Quantity    float64   `json:"quantity"`
}

type AssetForm struct {
	Ticker   string  `json:"ticker" validate:"required"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// ToPayload converts a typed value into the generic payload representation
// used on the wire for params and results.
func ToPayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
