package model

import (
	"time"
)

// AttemptStatus transitions are monotonic: IN_PROGRESS is the only non-terminal
// state, SUBMITTED and TIMED_OUT are both terminal.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptTimedOut   AttemptStatus = "TIMED_OUT"
)

// GradingStatus only advances forward through this ordered sequence;
// PUBLISHED is terminal.
type GradingStatus string

const (
	GradingPending        GradingStatus = "PENDING"
	GradingAutoGraded     GradingStatus = "AUTO_GRADED"
	GradingManualRequired GradingStatus = "MANUAL_REQUIRED"
	GradingCompleted      GradingStatus = "COMPLETED"
	GradingPublished      GradingStatus = "PUBLISHED"
)

// Attempt is one student's run of one exam session. Logically unique per
// (session, user); physically keyed by the client-supplied idempotency key so
// a retried download never creates a second row. Attempts are never deleted.
type Attempt struct {
	ID                    uint          `gorm:"primarykey" json:"id"`
	SessionID             uint          `json:"session_id" gorm:"not null;index"`
	UserID                uint          `json:"user_id" gorm:"not null;index"`
	IdempotencyKey        string        `json:"idempotency_key" gorm:"not null;uniqueIndex"`
	Status                AttemptStatus `json:"status" gorm:"not null;default:'IN_PROGRESS'"`
	GradingStatus         GradingStatus `json:"grading_status" gorm:"not null;default:'PENDING'"`
	TotalScore            *float64      `json:"total_score,omitempty"`
	MaxScore              *float64      `json:"max_score,omitempty"`
	StartedAt             time.Time     `json:"started_at" gorm:"not null"`
	SubmittedAt           *time.Time    `json:"submitted_at,omitempty"`
	GradingCompletedAt    *time.Time    `json:"grading_completed_at,omitempty"`
	DeviceFingerprintHash string        `json:"-"`
	Answers               []Answer      `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Closed reports whether the attempt reached a terminal status, which freezes
// its answers on the live path.
func (a *Attempt) Closed() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptTimedOut
}
