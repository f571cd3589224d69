package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/model"
)

func TestDownloadPackageIdempotent(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionSingleChoice, Prompt: "2+2?", Options: `["3","4"]`, CorrectAnswer: f.encrypt(t, `{"selected":"4"}`), Points: 1},
		model.Question{Type: model.QuestionTrueFalse, Prompt: "The sky is green.", CorrectAnswer: f.encrypt(t, `{"selected":"false"}`), Points: 1},
	)

	req := downloadReq(session.ID, "dl-key-1")
	first, err := f.attemptSvc.DownloadPackage(req)
	if err != nil {
		t.Fatalf("first download: %v", err)
	}
	second, err := f.attemptSvc.DownloadPackage(req)
	if err != nil {
		t.Fatalf("second download: %v", err)
	}

	if first.AttemptID != second.AttemptID {
		t.Errorf("retry created a new attempt: %d vs %d", first.AttemptID, second.AttemptID)
	}
	if first.Checksum != second.Checksum {
		t.Errorf("retry changed package checksum: %s vs %s", first.Checksum, second.Checksum)
	}
	if len(first.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(first.Questions))
	}

	// Only one timeout job regardless of retries.
	var jobs int64
	f.db.Model(&model.ScheduledJob{}).Where("kind = ?", KindTimeout).Count(&jobs)
	if jobs != 1 {
		t.Errorf("expected 1 timeout job, got %d", jobs)
	}
}

func TestDownloadPackageExcludesAnswerKeys(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionShortAnswer, Prompt: "Capital of France?", CorrectAnswer: f.encrypt(t, `{"text":"Paris"}`), Points: 2},
	)

	pkg, err := f.attemptSvc.DownloadPackage(downloadReq(session.ID, "dl-key-2"))
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	raw, err := json.Marshal(pkg)
	if err != nil {
		t.Fatalf("marshal package: %v", err)
	}
	if strings.Contains(string(raw), "Paris") || strings.Contains(string(raw), "correct_answer") {
		t.Errorf("package leaks answer key material: %s", raw)
	}
}

func TestDownloadPackageTokenMismatch(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)

	req := downloadReq(session.ID, "dl-key-3")
	req.TokenCode = "WRONG"
	if _, err := f.attemptSvc.DownloadPackage(req); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("expected ErrTokenMismatch, got %v", err)
	}
}

func TestDownloadPackageInactiveSession(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	f.db.Model(&model.ExamSession{}).Where("id = ?", session.ID).Update("status", model.SessionClosed)

	if _, err := f.attemptSvc.DownloadPackage(downloadReq(session.ID, "dl-key-4")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for closed session, got %v", err)
	}
}

func TestSubmitAnswerUpsert(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionSingleChoice, Prompt: "?", Options: `["a","b"]`, CorrectAnswer: f.encrypt(t, `{"selected":"a"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	first, err := f.attemptSvc.SubmitAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "ans-1", Answer: json.RawMessage(`{"selected":"a"}`),
	})
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}

	// Same key retried: same row, updated content.
	retry, err := f.attemptSvc.SubmitAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "ans-1", Answer: json.RawMessage(`{"selected":"a"}`),
	})
	if err != nil {
		t.Fatalf("retried answer: %v", err)
	}
	if retry.ID != first.ID {
		t.Errorf("retry created a new answer row: %d vs %d", retry.ID, first.ID)
	}

	// New key for the same question: content replaced, still one row.
	replaced, err := f.attemptSvc.SubmitAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "ans-2", Answer: json.RawMessage(`{"selected":"b"}`),
	})
	if err != nil {
		t.Fatalf("replacing answer: %v", err)
	}
	if replaced.ID != first.ID {
		t.Errorf("replacement created a new answer row: %d vs %d", replaced.ID, first.ID)
	}
	if replaced.Payload != `{"selected":"b"}` {
		t.Errorf("replacement did not update payload: %s", replaced.Payload)
	}

	var count int64
	f.db.Model(&model.Answer{}).Where("attempt_id = ?", attemptID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 answer row, got %d", count)
	}
}

func TestSubmitAnswerAfterCloseRejected(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)

	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := f.attemptSvc.SubmitAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: sessionQuestionID(t, f, session.ID),
		IdempotencyKey: "late-1", Answer: json.RawMessage(`{"answer":true}`),
	})
	if !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("expected ErrAttemptClosed, got %v", err)
	}
}

func TestSubmitExamIdempotent(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)

	first, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.AlreadySubmitted {
		t.Error("first submission flagged as duplicate")
	}

	second, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"})
	if err != nil {
		t.Fatalf("retried submit must not error: %v", err)
	}
	if !second.AlreadySubmitted {
		t.Error("retried submission not acknowledged as duplicate")
	}

	attempt, _ := f.attemptRepo.FindByID(attemptID)
	if attempt.Status != model.AttemptSubmitted {
		t.Errorf("attempt status = %s, want SUBMITTED", attempt.Status)
	}
}

func TestTimeoutIsNoOpAfterSubmission(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	submitted, _ := f.attemptRepo.FindByID(attemptID)

	if err := f.attemptSvc.HandleTimeout(context.Background(), strconv.FormatUint(uint64(attemptID), 10)); err != nil {
		t.Fatalf("timeout handler: %v", err)
	}

	after, _ := f.attemptRepo.FindByID(attemptID)
	if after.Status != model.AttemptSubmitted {
		t.Errorf("timeout overwrote terminal status: %s", after.Status)
	}
	if !after.SubmittedAt.Equal(*submitted.SubmittedAt) {
		t.Error("timeout changed submittedAt")
	}
}

func TestTimeoutClosesInProgressAttempt(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)

	if err := f.attemptSvc.HandleTimeout(context.Background(), strconv.FormatUint(uint64(attemptID), 10)); err != nil {
		t.Fatalf("timeout handler: %v", err)
	}
	attempt, _ := f.attemptRepo.FindByID(attemptID)
	if attempt.Status != model.AttemptTimedOut {
		t.Errorf("attempt status = %s, want TIMED_OUT", attempt.Status)
	}

	// Grading was scheduled like a normal submission.
	var jobs int64
	f.db.Model(&model.ScheduledJob{}).Where("id = ?", GradeJobID(attemptID)).Count(&jobs)
	if jobs != 1 {
		t.Errorf("expected grade job after timeout, got %d", jobs)
	}
}

func TestReplayAnswerAfterClose(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionShortAnswer, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"text":"paris"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	attempt, _ := f.attemptRepo.FindByID(attemptID)

	// Logged before submission: accepted.
	before := attempt.SubmittedAt.Add(-time.Minute)
	if _, err := f.attemptSvc.ReplayAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "replay-early", Answer: json.RawMessage(`{"text":"paris"}`),
	}, &before); err != nil {
		t.Fatalf("pre-submission replay rejected: %v", err)
	}

	// Logged after submission: rejected.
	after := attempt.SubmittedAt.Add(time.Minute)
	_, err := f.attemptSvc.ReplayAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "replay-late", Answer: json.RawMessage(`{"text":"london"}`),
	}, &after)
	if !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("expected ErrAttemptClosed for post-submission replay, got %v", err)
	}

	// No timestamp at all: rejected too.
	_, err = f.attemptSvc.ReplayAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "replay-unknown", Answer: json.RawMessage(`{"text":"rome"}`),
	}, nil)
	if !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("expected ErrAttemptClosed for undated replay, got %v", err)
	}
}

func TestGetAttemptResultVisibility(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionSingleChoice, Prompt: "?", Options: `["a","b"]`, CorrectAnswer: f.encrypt(t, `{"selected":"a"}`), Points: 2},
	)
	attemptID := f.startAttempt(t, session.ID)
	questionID := sessionQuestionID(t, f, session.ID)

	if _, err := f.attemptSvc.SubmitAnswer(dto.SubmitAnswerRequest{
		AttemptID: attemptID, QuestionID: questionID,
		IdempotencyKey: "ans-1", Answer: json.RawMessage(`{"selected":"a"}`),
	}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.runJobs(t)

	// Graded but not published: status only.
	res, err := f.attemptSvc.GetAttemptResult(attemptID, 1)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.TotalScore != nil || len(res.Answers) != 0 {
		t.Error("unpublished result leaked scores")
	}
	if res.GradingStatus != string(model.GradingAutoGraded) {
		t.Errorf("grading status = %s, want AUTO_GRADED", res.GradingStatus)
	}

	if err := f.gradingSvc.PublishResult(attemptID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	res, err = f.attemptSvc.GetAttemptResult(attemptID, 1)
	if err != nil {
		t.Fatalf("published result: %v", err)
	}
	if res.TotalScore == nil || *res.TotalScore != 2 {
		t.Errorf("published total score = %v, want 2", res.TotalScore)
	}
	if res.Passed == nil || !*res.Passed {
		t.Errorf("passed = %v, want true", res.Passed)
	}

	// Another user's ID looks like not-found.
	if _, err := f.attemptSvc.GetAttemptResult(attemptID, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign user got %v, want ErrNotFound", err)
	}
}

func TestDownloadPackageRetryRearmsTimeoutJob(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)

	pkg, err := f.attemptSvc.DownloadPackage(downloadReq(session.ID, "dl-rearm"))
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	// Simulate a crash that committed the attempt but lost the timeout job.
	f.db.Delete(&model.ScheduledJob{}, "id = ?", TimeoutJobID(pkg.AttemptID))

	if _, err := f.attemptSvc.DownloadPackage(downloadReq(session.ID, "dl-rearm")); err != nil {
		t.Fatalf("retry download: %v", err)
	}
	job, err := f.jobRepo.FindByID(TimeoutJobID(pkg.AttemptID))
	if err != nil {
		t.Fatalf("timeout job not re-armed: %v", err)
	}
	if job.Status != model.JobPending {
		t.Errorf("timeout job status = %s, want pending", job.Status)
	}
}

func TestSubmitExamRetryRearmsGradeJob(t *testing.T) {
	f := newFixture(t)
	session := f.seedSession(t,
		model.Question{Type: model.QuestionTrueFalse, Prompt: "?", CorrectAnswer: f.encrypt(t, `{"selected":"true"}`), Points: 1},
	)
	attemptID := f.startAttempt(t, session.ID)

	if _, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Simulate a crash that committed the submission but lost the grade job.
	f.db.Delete(&model.ScheduledJob{}, "id = ?", GradeJobID(attemptID))

	resp, err := f.attemptSvc.SubmitExam(dto.SubmitExamRequest{AttemptID: attemptID, IdempotencyKey: "sub-1"})
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if !resp.AlreadySubmitted {
		t.Error("retry not reported as already submitted")
	}
	job, err := f.jobRepo.FindByID(GradeJobID(attemptID))
	if err != nil {
		t.Fatalf("grade job not re-armed: %v", err)
	}
	if job.Status != model.JobPending {
		t.Errorf("grade job status = %s, want pending", job.Status)
	}
}

func sessionQuestionID(t *testing.T, f *fixture, sessionID uint) uint {
	t.Helper()
	var q model.Question
	if err := f.db.Where("session_id = ?", sessionID).First(&q).Error; err != nil {
		t.Fatalf("load question: %v", err)
	}
	return q.ID
}
