package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/model"
)

func answerItem(attemptID, questionID uint, key, answer string, loggedAt *time.Time) dto.SyncItemRequest {
	payload, _ := json.Marshal(dto.AnswerMutationPayload{
		QuestionID:     questionID,
		IdempotencyKey: key + "-answer",
		Answer:         json.RawMessage(answer),
	})
	return dto.SyncItemRequest{
		Type:           string(model.SyncSubmitAnswer),
		IdempotencyKey: key,
		AttemptID:      attemptID,
		Payload:        payload,
		LoggedAt:       loggedAt,
	}
}

func TestPushBatchDeduplicates(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	item := answerItem(attemptID, questionID, "sync-1", `{"selected":"true"}`, nil)
	first, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{item}})
	if err != nil {
		t.Fatalf("first push: %v", err)
	}
	if first.Accepted != 1 || first.Duplicates != 0 {
		t.Errorf("first push accepted=%d duplicates=%d", first.Accepted, first.Duplicates)
	}

	second, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{item}})
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if second.Accepted != 0 || second.Duplicates != 1 {
		t.Errorf("second push accepted=%d duplicates=%d", second.Accepted, second.Duplicates)
	}

	var count int64
	f.db.Model(&model.SyncQueueItem{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 queue row, got %d", count)
	}
}

func TestPushBatchEmpty(t *testing.T) {
	f := newFixture(t)
	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1}); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestProcessReplaysAnswerAndActivity(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	activityPayload, _ := json.Marshal(dto.ActivityLogPayload{EventType: "focus_lost", Detail: json.RawMessage(`{"seconds":12}`)})
	loggedAt := time.Now().Add(-time.Minute)
	items := []dto.SyncItemRequest{
		answerItem(attemptID, questionID, "sync-a", `{"selected":"true"}`, &loggedAt),
		{
			Type:           string(model.SyncActivityLog),
			IdempotencyKey: "sync-act",
			AttemptID:      attemptID,
			Payload:        activityPayload,
			LoggedAt:       &loggedAt,
		},
	}
	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: items}); err != nil {
		t.Fatalf("push: %v", err)
	}
	f.runJobs(t)

	for _, key := range []string{"sync-a", "sync-act"} {
		item, err := f.syncRepo.FindByKey(key)
		if err != nil {
			t.Fatalf("load item %s: %v", key, err)
		}
		if item.Status != model.SyncCompleted {
			t.Errorf("item %s status = %s, want COMPLETED", key, item.Status)
		}
		if item.ProcessedAt == nil {
			t.Errorf("item %s missing processedAt", key)
		}
	}

	if _, err := f.answerRepo.FindByAttemptAndQuestion(attemptID, questionID); err != nil {
		t.Errorf("replayed answer not stored: %v", err)
	}
	var logs int64
	f.db.Model(&model.ActivityLog{}).Where("attempt_id = ?", attemptID).Count(&logs)
	if logs != 1 {
		t.Errorf("expected 1 activity log, got %d", logs)
	}
}

func TestProcessDropsPostSubmissionEdit(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	late := time.Now().Add(time.Hour)
	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{
		answerItem(attemptID, questionID, "sync-late", `{"selected":"true"}`, &late),
	}}); err != nil {
		t.Fatalf("push: %v", err)
	}
	f.runJobs(t)

	// Dropping a too-late edit is a successful, terminal outcome.
	item, _ := f.syncRepo.FindByKey("sync-late")
	if item.Status != model.SyncCompleted {
		t.Errorf("item status = %s, want COMPLETED", item.Status)
	}
	if _, err := f.answerRepo.FindByAttemptAndQuestion(attemptID, questionID); err == nil {
		t.Error("post-submission edit was applied")
	}
}

func TestProcessDeadLettersAfterRetryBudget(t *testing.T) {
	f := newFixture(t)

	// Attempt 999999 does not exist, so every replay fails.
	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{
		answerItem(999999, 1, "sync-dead", `{"selected":"x"}`, nil),
	}}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// MaxRetries is 2 in the fixture; each pass consumes one attempt.
	for i := 0; i < 2; i++ {
		if err := f.syncSvc.Process(context.Background(), "sync-dead"); err == nil && i == 0 {
			t.Fatal("expected first process pass to fail")
		}
	}

	item, _ := f.syncRepo.FindByKey("sync-dead")
	if item.Status != model.SyncDeadLetter {
		t.Errorf("item status = %s, want DEAD_LETTER", item.Status)
	}
	if item.LastError == "" {
		t.Error("dead-lettered item has no lastError")
	}

	// Dead letter is terminal: further processing and retries are refused.
	if err := f.syncSvc.Process(context.Background(), "sync-dead"); err != nil {
		t.Errorf("processing a dead-lettered item must be a no-op, got %v", err)
	}
	if err := f.syncSvc.Retry(item.ID); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("expected ErrNotRetryable for dead letter, got %v", err)
	}
}

func TestRetryRearmsFailedItem(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	// First push against a bogus attempt fails once, leaving FAILED.
	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{
		answerItem(999999, questionID, "sync-retry", `{"selected":"true"}`, nil),
	}}); err != nil {
		t.Fatalf("push: %v", err)
	}
	_ = f.syncSvc.Process(context.Background(), "sync-retry")

	item, _ := f.syncRepo.FindByKey("sync-retry")
	if item.Status != model.SyncFailed {
		t.Fatalf("item status = %s, want FAILED", item.Status)
	}

	// Point the item at the real attempt, then retry.
	f.db.Model(&model.SyncQueueItem{}).Where("idempotency_key = ?", "sync-retry").
		Update("attempt_id", attemptID)
	if err := f.syncSvc.Retry(item.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	f.runJobs(t)

	item, _ = f.syncRepo.FindByKey("sync-retry")
	if item.Status != model.SyncCompleted {
		t.Errorf("item status after retry = %s, want COMPLETED", item.Status)
	}
}

func TestStatusAndCheckpoint(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	// Before any sync activity the checkpoint is empty.
	cp, err := f.syncSvc.Checkpoint(1)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if cp.LastSyncedAt != nil {
		t.Error("fresh user has a checkpoint")
	}

	if _, err := f.syncSvc.PushBatch(dto.SyncPushRequest{UserID: 1, Items: []dto.SyncItemRequest{
		answerItem(attemptID, questionID, "sync-s", `{"selected":"true"}`, nil),
	}}); err != nil {
		t.Fatalf("push: %v", err)
	}
	f.runJobs(t)

	status, err := f.syncSvc.Status(attemptID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Counts[string(model.SyncCompleted)] != 1 {
		t.Errorf("completed count = %d, want 1", status.Counts[string(model.SyncCompleted)])
	}
	if len(status.Items) != 1 {
		t.Errorf("item count = %d, want 1", len(status.Items))
	}

	cp, err = f.syncSvc.Checkpoint(1)
	if err != nil {
		t.Fatalf("checkpoint after sync: %v", err)
	}
	if cp.LastSyncedAt == nil {
		t.Error("checkpoint not advanced after completed sync")
	}
}
