package model

import (
	"time"
)

// SyncItemType enumerates the mutation kinds a client may queue offline.
type SyncItemType string

const (
	SyncSubmitAnswer SyncItemType = "SUBMIT_ANSWER"
	SyncSubmitExam   SyncItemType = "SUBMIT_EXAM"
	SyncActivityLog  SyncItemType = "ACTIVITY_LOG"
)

// SyncItemStatus transitions: PENDING→PROCESSING→{COMPLETED|FAILED};
// FAILED→PENDING on retry; FAILED→DEAD_LETTER once the retry budget is spent.
type SyncItemStatus string

const (
	SyncPending    SyncItemStatus = "PENDING"
	SyncProcessing SyncItemStatus = "PROCESSING"
	SyncCompleted  SyncItemStatus = "COMPLETED"
	SyncFailed     SyncItemStatus = "FAILED"
	SyncDeadLetter SyncItemStatus = "DEAD_LETTER"
)

// SyncQueueItem is a durable record of one offline-originated mutation
// awaiting replay. Rows are never deleted; they are the forensic trail.
type SyncQueueItem struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	IdempotencyKey string         `json:"idempotency_key" gorm:"not null;uniqueIndex"`
	Type           SyncItemType   `json:"type" gorm:"not null"`
	AttemptID      uint           `json:"attempt_id" gorm:"index"`
	UserID         uint           `json:"user_id" gorm:"index"`
	Payload        string         `json:"payload" gorm:"type:text"`
	Status         SyncItemStatus `json:"status" gorm:"not null;default:'PENDING'"`
	RetryCount     int            `json:"retry_count" gorm:"not null;default:0"`
	MaxRetries     int            `json:"max_retries" gorm:"not null"`
	LastError      string         `json:"last_error,omitempty" gorm:"type:text"`
	// LoggedAt is the client-side timestamp of the mutation, used to decide
	// whether a replayed answer edit predates the attempt's submission.
	LoggedAt    *time.Time `json:"logged_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
