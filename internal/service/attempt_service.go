package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/event"
	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/quinloq/examgate/internal/scheduler"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptService owns the attempt lifecycle: package download (attempt
// creation), answer upsert, exam submission and result retrieval. Every
// operation is safe to retry with the same idempotency key.
type AttemptService interface {
	DownloadPackage(req dto.DownloadPackageRequest) (*dto.PackageResponse, error)
	SubmitAnswer(req dto.SubmitAnswerRequest) (*dto.AnswerResponse, error)
	// ReplayAnswer is the sync path's variant of SubmitAnswer: an edit logged
	// before the attempt's submission is still accepted after it closed.
	ReplayAnswer(req dto.SubmitAnswerRequest, loggedAt *time.Time) (*dto.AnswerResponse, error)
	SubmitExam(req dto.SubmitExamRequest) (*dto.SubmitExamResponse, error)
	GetAttemptResult(attemptID, userID uint) (*dto.AttemptResultResponse, error)
	// HandleTimeout is the scheduler handler for timeout jobs.
	HandleTimeout(ctx context.Context, payload string) error
}

type attemptService struct {
	sessionRepo repository.SessionRepository
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
	builder     PackageBuilder
	sched       *scheduler.Scheduler
	bus         *event.Bus
}

func NewAttemptService(
	sessionRepo repository.SessionRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	builder PackageBuilder,
	sched *scheduler.Scheduler,
	bus *event.Bus,
) AttemptService {
	return &attemptService{
		sessionRepo: sessionRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		builder:     builder,
		sched:       sched,
		bus:         bus,
	}
}

func (s *attemptService) DownloadPackage(req dto.DownloadPackageRequest) (*dto.PackageResponse, error) {
	session, err := s.sessionRepo.FindByIDWithQuestions(req.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %d: %w", req.SessionID, err)
	}

	now := time.Now()
	if session.Status != model.SessionActive || now.Before(session.StartsAt) || now.After(session.EndsAt) {
		return nil, ErrNotFound
	}

	token, err := s.sessionRepo.FindToken(session.ID, req.UserID)
	if err != nil || token.Code != req.TokenCode {
		return nil, ErrTokenMismatch
	}

	attempt := &model.Attempt{
		SessionID:             session.ID,
		UserID:                req.UserID,
		IdempotencyKey:        req.IdempotencyKey,
		Status:                model.AttemptInProgress,
		GradingStatus:         model.GradingPending,
		StartedAt:             now,
		DeviceFingerprintHash: hashFingerprint(req.DeviceFingerprint),
	}
	attempt, created, err := s.attemptRepo.CreateIfAbsent(attempt)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	// Server-enforced time limit; fires even if the client disappears. Also
	// enqueued on the idempotent retry path: the deterministic id absorbs
	// duplicates, and a retry after a crash between attempt creation and
	// scheduling re-arms the lost job.
	fireAt := attempt.StartedAt.Add(time.Duration(session.DurationMinutes) * time.Minute)
	if err := s.sched.Enqueue(TimeoutJobID(attempt.ID), KindTimeout, strconv.FormatUint(uint64(attempt.ID), 10), fireAt, timeoutJobMaxAttempts); err != nil {
		return nil, fmt.Errorf("schedule timeout: %w", err)
	}
	if created {
		log.Info().Uint("attempt_id", attempt.ID).Uint("session_id", session.ID).Uint("user_id", req.UserID).
			Time("timeout_at", fireAt).Msg("Attempt created")
	}

	return s.builder.Build(session, attempt)
}

func (s *attemptService) SubmitAnswer(req dto.SubmitAnswerRequest) (*dto.AnswerResponse, error) {
	attempt, err := s.attemptRepo.FindByID(req.AttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt %d: %w", req.AttemptID, err)
	}
	if attempt.Closed() {
		return nil, ErrAttemptClosed
	}
	return s.upsertAnswer(req)
}

func (s *attemptService) ReplayAnswer(req dto.SubmitAnswerRequest, loggedAt *time.Time) (*dto.AnswerResponse, error) {
	attempt, err := s.attemptRepo.FindByID(req.AttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt %d: %w", req.AttemptID, err)
	}

	if attempt.Closed() {
		// A queued edit that predates the submission is still a real answer;
		// one logged afterwards is rejected like the live path would.
		if loggedAt == nil || attempt.SubmittedAt == nil || !loggedAt.Before(*attempt.SubmittedAt) {
			return nil, ErrAttemptClosed
		}
		resp, err := s.upsertAnswer(req)
		if err != nil {
			return nil, err
		}
		// The attempt may already be graded; recompute so the late answer is
		// included. Grading is idempotent, so a fresh job id is safe.
		jobID := fmt.Sprintf("%s-replay-%s", GradeJobID(attempt.ID), req.IdempotencyKey)
		if err := s.sched.Enqueue(jobID, KindGrade, strconv.FormatUint(uint64(attempt.ID), 10), time.Now(), gradeJobMaxAttempts); err != nil {
			return nil, fmt.Errorf("schedule regrade: %w", err)
		}
		log.Info().Uint("attempt_id", attempt.ID).Time("logged_at", *loggedAt).
			Msg("Accepted pre-submission answer edit after attempt close")
		return resp, nil
	}
	return s.upsertAnswer(req)
}

// upsertAnswer creates or updates an answer. A repeated idempotency key is a
// retry of the same edit; a new key for the same question replaces content.
func (s *attemptService) upsertAnswer(req dto.SubmitAnswerRequest) (*dto.AnswerResponse, error) {
	mediaURLs, err := marshalMediaURLs(req.MediaURLs)
	if err != nil {
		return nil, err
	}

	if existing, err := s.answerRepo.FindByIdempotencyKey(req.IdempotencyKey); err == nil {
		existing.Payload = string(req.Answer)
		if mediaURLs != "" {
			existing.MediaURLs = mediaURLs
		}
		if err := s.answerRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("update answer: %w", err)
		}
		return answerToDTO(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup answer by key: %w", err)
	}

	if existing, err := s.answerRepo.FindByAttemptAndQuestion(req.AttemptID, req.QuestionID); err == nil {
		existing.IdempotencyKey = req.IdempotencyKey
		existing.Payload = string(req.Answer)
		if mediaURLs != "" {
			existing.MediaURLs = mediaURLs
		}
		if err := s.answerRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("replace answer: %w", err)
		}
		return answerToDTO(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup answer by question: %w", err)
	}

	answer := &model.Answer{
		AttemptID:      req.AttemptID,
		QuestionID:     req.QuestionID,
		IdempotencyKey: req.IdempotencyKey,
		Payload:        string(req.Answer),
		MediaURLs:      mediaURLs,
	}
	if err := s.answerRepo.Create(answer); err != nil {
		// Lost a concurrent create race; the winner's row absorbs this edit.
		if existing, findErr := s.answerRepo.FindByAttemptAndQuestion(req.AttemptID, req.QuestionID); findErr == nil {
			existing.IdempotencyKey = req.IdempotencyKey
			existing.Payload = string(req.Answer)
			if updErr := s.answerRepo.Update(existing); updErr != nil {
				return nil, fmt.Errorf("resolve answer create race: %w", updErr)
			}
			return answerToDTO(existing), nil
		}
		return nil, fmt.Errorf("create answer: %w", err)
	}
	return answerToDTO(answer), nil
}

func (s *attemptService) SubmitExam(req dto.SubmitExamRequest) (*dto.SubmitExamResponse, error) {
	attempt, err := s.attemptRepo.FindByID(req.AttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt %d: %w", req.AttemptID, err)
	}

	now := time.Now()
	transitioned, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptInProgress, model.AttemptSubmitted, now)
	if err != nil {
		return nil, fmt.Errorf("submit attempt %d: %w", attempt.ID, err)
	}
	if !transitioned {
		// The common retry case for a client with an unreliable connection.
		// Re-enqueue the grade job here too: the first call may have crashed
		// between the transition and scheduling, and the deterministic id
		// collapses duplicates.
		if err := s.sched.Enqueue(GradeJobID(attempt.ID), KindGrade, strconv.FormatUint(uint64(attempt.ID), 10), now, gradeJobMaxAttempts); err != nil {
			return nil, fmt.Errorf("schedule grading: %w", err)
		}
		return &dto.SubmitExamResponse{
			Message:          "exam already submitted",
			AttemptID:        attempt.ID,
			AlreadySubmitted: true,
		}, nil
	}

	s.bus.Publish(event.Event{Name: event.ExamSubmitted, AttemptID: attempt.ID, Payload: map[string]interface{}{
		"session_id": attempt.SessionID,
		"user_id":    attempt.UserID,
	}})

	// Deduplicated by the deterministic job id, not by this code.
	if err := s.sched.Enqueue(GradeJobID(attempt.ID), KindGrade, strconv.FormatUint(uint64(attempt.ID), 10), now, gradeJobMaxAttempts); err != nil {
		return nil, fmt.Errorf("schedule grading: %w", err)
	}

	return &dto.SubmitExamResponse{Message: "exam submitted", AttemptID: attempt.ID}, nil
}

func (s *attemptService) GetAttemptResult(attemptID, userID uint) (*dto.AttemptResultResponse, error) {
	attempt, err := s.attemptRepo.FindByIDWithAnswers(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt %d: %w", attemptID, err)
	}
	if attempt.UserID != userID {
		// Not-owned looks exactly like not-found to the caller.
		return nil, ErrNotFound
	}

	resp := &dto.AttemptResultResponse{
		AttemptID:     attempt.ID,
		Status:        string(attempt.Status),
		GradingStatus: string(attempt.GradingStatus),
	}

	if attempt.GradingStatus != model.GradingPublished {
		resp.Message = "results are not published yet"
		return resp, nil
	}

	session, err := s.sessionRepo.FindByID(attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", attempt.SessionID, err)
	}

	resp.Message = "results published"
	resp.TotalScore = attempt.TotalScore
	resp.MaxScore = attempt.MaxScore
	if attempt.TotalScore != nil && attempt.MaxScore != nil && *attempt.MaxScore > 0 {
		percent := *attempt.TotalScore / *attempt.MaxScore * 100
		passed := percent >= session.PassingPercent
		resp.Percent = &percent
		resp.Passed = &passed
	}
	for _, ans := range attempt.Answers {
		resp.Answers = append(resp.Answers, dto.AnswerScoreDTO{
			QuestionID:     ans.QuestionID,
			Score:          ans.Score,
			MaxScore:       ans.MaxScore,
			IsAutoGraded:   ans.IsAutoGraded,
			RequiresManual: ans.RequiresManual,
			Feedback:       ans.Feedback,
		})
	}
	return resp, nil
}

// HandleTimeout enforces the time limit server-side. The attempt's current
// status decides everything: an already-submitted attempt makes this a no-op.
func (s *attemptService) HandleTimeout(ctx context.Context, payload string) error {
	attemptID, err := parseAttemptID(payload)
	if err != nil {
		return err
	}

	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return fmt.Errorf("load attempt %d: %w", attemptID, err)
	}

	now := time.Now()
	transitioned, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptInProgress, model.AttemptTimedOut, now)
	if err != nil {
		return fmt.Errorf("time out attempt %d: %w", attempt.ID, err)
	}
	if !transitioned {
		log.Debug().Uint("attempt_id", attempt.ID).Str("status", string(attempt.Status)).
			Msg("Timeout job is a no-op, attempt already closed")
		return nil
	}

	s.bus.Publish(event.Event{Name: event.ExamTimedOut, AttemptID: attempt.ID, Payload: map[string]interface{}{
		"session_id": attempt.SessionID,
		"user_id":    attempt.UserID,
	}})
	log.Info().Uint("attempt_id", attempt.ID).Msg("Attempt timed out server-side")

	// A timed-out attempt is graded exactly like a submitted one.
	return s.sched.Enqueue(GradeJobID(attempt.ID), KindGrade, strconv.FormatUint(uint64(attempt.ID), 10), now, gradeJobMaxAttempts)
}

func hashFingerprint(fingerprint string) string {
	if fingerprint == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

func marshalMediaURLs(urls []string) (string, error) {
	if len(urls) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("encode media urls: %w", err)
	}
	return string(raw), nil
}

func answerToDTO(answer *model.Answer) *dto.AnswerResponse {
	var resp dto.AnswerResponse
	if err := copier.Copy(&resp, answer); err != nil {
		log.Error().Err(err).Uint("answer_id", answer.ID).Msg("Failed to map answer to DTO")
	}
	return &resp
}

func parseAttemptID(payload string) (uint, error) {
	id, err := strconv.ParseUint(payload, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse attempt id %q: %w", payload, err)
	}
	return uint(id), nil
}
