package model

import (
	"time"
)

// Answer is one student response to one question within one attempt. The
// idempotency key identifies a submission action; a new key for the same
// question replaces the content while the attempt is still open.
type Answer struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	AttemptID      uint   `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID     uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	IdempotencyKey string `json:"idempotency_key" gorm:"not null;uniqueIndex"`
	// Payload is the JSON-encoded answer; its shape depends on the question type.
	Payload        string     `json:"payload" gorm:"type:text;not null"`
	MediaURLs      string     `json:"media_urls,omitempty" gorm:"type:text"`
	Score          *float64   `json:"score,omitempty"`
	MaxScore       *float64   `json:"max_score,omitempty"`
	IsAutoGraded   bool       `json:"is_auto_graded"`
	RequiresManual bool       `json:"requires_manual"`
	Feedback       string     `json:"feedback,omitempty" gorm:"type:text"`
	GradedAt       *time.Time `json:"graded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
