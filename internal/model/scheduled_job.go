package model

import (
	"time"
)

// JobStatus transitions: pending→running→{completed|pending(backoff)|failed}.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ScheduledJob is one deferred unit of work. The primary key is deterministic
// (e.g. "timeout-42"), so duplicate scheduling requests collapse into a single
// pending row via insert-or-ignore.
type ScheduledJob struct {
	ID          string    `gorm:"primarykey" json:"id"`
	Kind        string    `json:"kind" gorm:"not null;index"`
	Payload     string    `json:"payload" gorm:"type:text"`
	RunAt       time.Time `json:"run_at" gorm:"not null;index"`
	Status      JobStatus `json:"status" gorm:"not null;default:'pending';index"`
	Attempts    int       `json:"attempts" gorm:"not null;default:0"`
	MaxAttempts int       `json:"max_attempts" gorm:"not null"`
	LastError   string    `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
