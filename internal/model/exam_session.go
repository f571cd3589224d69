package model

import (
	"time"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionClosed    SessionStatus = "closed"
)

type ExamSession struct {
	ID               uint          `gorm:"primarykey" json:"id"`
	TenantID         uint          `json:"tenant_id" gorm:"not null;index"`
	Title            string        `json:"title" gorm:"not null"`
	Status           SessionStatus `json:"status" gorm:"not null;default:'scheduled'"`
	StartsAt         time.Time     `json:"starts_at" gorm:"not null"`
	EndsAt           time.Time     `json:"ends_at" gorm:"not null"`
	DurationMinutes  int           `json:"duration_minutes" gorm:"not null"`
	PassingPercent   float64       `json:"passing_percent" gorm:"not null;default:50"`
	ShuffleQuestions bool          `json:"shuffle_questions"`
	Questions        []Question    `json:"questions,omitempty" gorm:"foreignKey:SessionID"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// SessionToken is the one-time code a student must present to download the
// exam package. Scoped to a single (session, user) pair; stored as issued,
// compared by exact match.
type SessionToken struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SessionID uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_session_user_token"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_session_user_token"`
	Code      string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
