package service

import "fmt"

// Job kinds handled by the deferred scheduler.
const (
	KindTimeout     = "attempt.timeout"
	KindGrade       = "attempt.grade"
	KindSyncProcess = "sync.process"
)

const (
	timeoutJobMaxAttempts = 5
	gradeJobMaxAttempts   = 5
)

// Deterministic job ids: duplicate scheduling requests for one attempt
// collapse into a single pending job.
func TimeoutJobID(attemptID uint) string { return fmt.Sprintf("timeout-%d", attemptID) }
func GradeJobID(attemptID uint) string   { return fmt.Sprintf("grade-%d", attemptID) }
func SyncJobID(idempotencyKey string) string {
	return fmt.Sprintf("sync-%s", idempotencyKey)
}
