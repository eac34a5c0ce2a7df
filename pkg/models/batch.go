package models

import (
	"time"
)

// Batch statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Batch represents the core batch entity (for internal use)
type Batch struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Status         string           `json:"status"`
	Progress       int              `json:"progress"`
	Entries        []Entry          `json:"entries"`
	Tests          []TestDefinition `json:"tests"`
	MaxAttenuation int              `json:"max_attenuation"`
	ShotEstimate   int              `json:"shot_estimate"`
	ErrorMsg       *string          `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}
