package chat

import (
	"time"

	"github.com/suPer8Hu/prompt-lab/internal/variation"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a queued experiment, committed later by the worker against the
// session that was active when it was submitted.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	SessionID string `gorm:"size:26;index;not null" json:"session_id"`

	Prompt     string           `gorm:"type:text;not null" json:"prompt"`
	Parameters variation.Params `gorm:"type:text;serializer:json" json:"parameters"`

	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex:uniq_chat_job_idempo" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultTurnID *string `gorm:"type:varchar(36);index" json:"result_turn_id"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "chat_jobs" }
