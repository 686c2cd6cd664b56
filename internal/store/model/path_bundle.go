package model

import (
	"time"

	"github.com/google/uuid"
)

// PathBundle is the stored Monte-Carlo path artifact of one job. A job owns
// at most one bundle; for multi-leg jobs only the first leg's simulation is
// retained to bound storage.
type PathBundle struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	JobID     uuid.UUID `gorm:"not null;uniqueIndex"`
	NPaths    int       `gorm:"not null"`
	Steps     int       `gorm:"not null"`
	TimeGrid  *JSONField[[]float64]   `gorm:"type:jsonb"`
	Values    *JSONField[[][]float64] `gorm:"type:jsonb"`
	CreatedAt time.Time
}
