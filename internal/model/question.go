package model

import (
	"time"
)

// QuestionType is the closed taxonomy of gradable question kinds.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionMultiSelect  QuestionType = "multi_select"
	QuestionMatching     QuestionType = "matching"
	QuestionShortAnswer  QuestionType = "short_answer"
	QuestionEssay        QuestionType = "essay"
)

type Question struct {
	ID        uint         `gorm:"primarykey" json:"id"`
	SessionID uint         `json:"session_id" gorm:"not null;index"`
	Type      QuestionType `json:"type" gorm:"not null"`
	Prompt    string       `json:"prompt" gorm:"type:text;not null"`
	// Options holds the JSON-encoded choices/pairs shown to the student.
	Options string `json:"options,omitempty" gorm:"type:text"`
	// CorrectAnswer is AES-GCM encrypted at rest; decrypted only inside the
	// grading reconciler.
	CorrectAnswer string  `json:"-" gorm:"type:text"`
	Points        float64 `json:"points" gorm:"not null;default:1"`
	// PointsOverride, when set, replaces Points for this session's package.
	PointsOverride      *float64  `json:"points_override,omitempty"`
	SimilarityThreshold *float64  `json:"similarity_threshold,omitempty"`
	Position            int       `json:"position" gorm:"not null"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// EffectivePoints resolves the package-question override against the
// question-level default.
func (q *Question) EffectivePoints() float64 {
	if q.PointsOverride != nil {
		return *q.PointsOverride
	}
	return q.Points
}
