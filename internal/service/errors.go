package service

import "errors"

// NotFound conflates "absent" and "not owned by the caller" so the API never
// leaks the existence of other users' data.
var (
	ErrNotFound         = errors.New("not found")
	ErrTokenMismatch    = errors.New("token code mismatch")
	ErrAttemptClosed    = errors.New("attempt is closed")
	ErrEmptyBatch       = errors.New("sync batch is empty")
	ErrNotRetryable     = errors.New("sync item is not retryable")
	ErrBadChunkIndex    = errors.New("chunk index out of range")
	ErrUploadIncomplete = errors.New("upload is incomplete")
	ErrUploadGone       = errors.New("upload staging area no longer exists")
	ErrBadRequest       = errors.New("bad request")
)
