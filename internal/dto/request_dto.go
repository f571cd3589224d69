package dto

import (
	"encoding/json"
	"time"
)

// DownloadPackageRequest starts (or idempotently re-fetches) an attempt.
type DownloadPackageRequest struct {
	SessionID         uint   `json:"session_id" binding:"required"`
	UserID            uint   `json:"user_id" binding:"required"`
	TokenCode         string `json:"token_code" binding:"required"`
	DeviceFingerprint string `json:"device_fingerprint"`
	IdempotencyKey    string `json:"idempotency_key" binding:"required"`
}

type SubmitAnswerRequest struct {
	AttemptID      uint            `json:"attempt_id" binding:"required"`
	QuestionID     uint            `json:"question_id" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
	Answer         json.RawMessage `json:"answer" binding:"required"`
	MediaURLs      []string        `json:"media_urls"`
}

type SubmitExamRequest struct {
	AttemptID      uint   `json:"attempt_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

// SyncItemRequest is one offline-logged mutation inside a push batch.
type SyncItemRequest struct {
	Type           string          `json:"type" binding:"required,oneof=SUBMIT_ANSWER SUBMIT_EXAM ACTIVITY_LOG"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
	AttemptID      uint            `json:"attempt_id"`
	Payload        json.RawMessage `json:"payload"`
	LoggedAt       *time.Time      `json:"logged_at"`
}

type SyncPushRequest struct {
	UserID uint              `json:"user_id" binding:"required"`
	Items  []SyncItemRequest `json:"items" binding:"required,dive"`
}

type SyncRetryRequest struct {
	SyncItemID uint `json:"sync_item_id" binding:"required"`
}

type FinalizeUploadRequest struct {
	FileID      string `json:"file_id" binding:"required"`
	TotalChunks int    `json:"total_chunks" binding:"required,min=1"`
	QuestionID  uint   `json:"question_id"`
}

type ManualGradeRequest struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// AnswerMutationPayload is the payload shape of a SUBMIT_ANSWER sync item.
type AnswerMutationPayload struct {
	QuestionID     uint            `json:"question_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Answer         json.RawMessage `json:"answer"`
	MediaURLs      []string        `json:"media_urls"`
}

// ActivityLogPayload is the payload shape of an ACTIVITY_LOG sync item.
type ActivityLogPayload struct {
	EventType string          `json:"event_type"`
	Detail    json.RawMessage `json:"detail"`
}
