package dto

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type AckResponse struct {
	Message string `json:"message"`
}

// PackageQuestionDTO deliberately has no answer-key field; the checksum is
// computed over this shape.
type PackageQuestionDTO struct {
	ID       uint            `json:"id"`
	Type     string          `json:"type"`
	Prompt   string          `json:"prompt"`
	Options  json.RawMessage `json:"options,omitempty"`
	Points   float64         `json:"points"`
	Position int             `json:"position"`
}

type PackageResponse struct {
	AttemptID       uint                 `json:"attempt_id"`
	SessionID       uint                 `json:"session_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	PassingPercent  float64              `json:"passing_percent"`
	Questions       []PackageQuestionDTO `json:"questions"`
	Checksum        string               `json:"checksum"`
	ExpiresAt       time.Time            `json:"expires_at"`
}

type AnswerResponse struct {
	ID             uint      `json:"id"`
	AttemptID      uint      `json:"attempt_id"`
	QuestionID     uint      `json:"question_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Payload        string    `json:"payload"`
	MediaURLs      string    `json:"media_urls,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SubmitExamResponse struct {
	Message          string `json:"message"`
	AttemptID        uint   `json:"attempt_id"`
	AlreadySubmitted bool   `json:"already_submitted"`
}

// AnswerScoreDTO is one line of the published score breakdown.
type AnswerScoreDTO struct {
	QuestionID     uint     `json:"question_id"`
	Score          *float64 `json:"score,omitempty"`
	MaxScore       *float64 `json:"max_score,omitempty"`
	IsAutoGraded   bool     `json:"is_auto_graded"`
	RequiresManual bool     `json:"requires_manual"`
	Feedback       string   `json:"feedback,omitempty"`
}

// AttemptResultResponse is status-only until results are published; the
// breakdown fields are populated only for PUBLISHED attempts.
type AttemptResultResponse struct {
	AttemptID     uint             `json:"attempt_id"`
	Status        string           `json:"status"`
	GradingStatus string           `json:"grading_status"`
	Message       string           `json:"message"`
	TotalScore    *float64         `json:"total_score,omitempty"`
	MaxScore      *float64         `json:"max_score,omitempty"`
	Percent       *float64         `json:"percent,omitempty"`
	Passed        *bool            `json:"passed,omitempty"`
	Answers       []AnswerScoreDTO `json:"answers,omitempty"`
}

type SyncItemResult struct {
	IdempotencyKey string `json:"idempotency_key"`
	Status         string `json:"status"`
}

type SyncPushResponse struct {
	Accepted   int              `json:"accepted"`
	Duplicates int              `json:"duplicates"`
	Rejected   int              `json:"rejected"`
	Results    []SyncItemResult `json:"results"`
}

type SyncItemDTO struct {
	ID             uint       `json:"id"`
	IdempotencyKey string     `json:"idempotency_key"`
	Type           string     `json:"type"`
	AttemptID      uint       `json:"attempt_id"`
	Status         string     `json:"status"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	LastError      string     `json:"last_error,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type SyncStatusResponse struct {
	AttemptID uint             `json:"attempt_id"`
	Counts    map[string]int64 `json:"counts"`
	Items     []SyncItemDTO    `json:"items"`
}

type CheckpointResponse struct {
	UserID       uint       `json:"user_id"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

type ChunkStatusResponse struct {
	FileID     string `json:"file_id"`
	Saved      int    `json:"saved"`
	Total      int    `json:"total"`
	IsComplete bool   `json:"is_complete"`
}

type FinalizeUploadResponse struct {
	ObjectName string `json:"object_name"`
	MediaURL   string `json:"media_url"`
}
