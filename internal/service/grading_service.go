package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/event"
	"github.com/quinloq/examgate/internal/grading"
	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/quinloq/examgate/internal/secure"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// GradingService walks all answers of an attempt through the auto-grading
// engine and aggregates the outcome. RunAutoGrade is idempotent: re-running it
// recomputes from the same answer data and overwrites prior scores
// consistently.
type GradingService interface {
	RunAutoGrade(ctx context.Context, attemptID uint) error
	// HandleGradeJob is the scheduler handler for grade jobs.
	HandleGradeJob(ctx context.Context, payload string) error
	GradeManually(answerID uint, req dto.ManualGradeRequest) error
	PublishResult(attemptID uint) error
}

type gradingService struct {
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
	sessionRepo repository.SessionRepository
	cipher      *secure.Cipher
	bus         *event.Bus
	feedback    FeedbackDraftService
}

func NewGradingService(
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	sessionRepo repository.SessionRepository,
	cipher *secure.Cipher,
	bus *event.Bus,
	feedback FeedbackDraftService,
) GradingService {
	return &gradingService{
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		sessionRepo: sessionRepo,
		cipher:      cipher,
		bus:         bus,
		feedback:    feedback,
	}
}

func (s *gradingService) HandleGradeJob(ctx context.Context, payload string) error {
	attemptID, err := parseAttemptID(payload)
	if err != nil {
		return err
	}
	return s.RunAutoGrade(ctx, attemptID)
}

func (s *gradingService) RunAutoGrade(ctx context.Context, attemptID uint) error {
	attempt, err := s.attemptRepo.FindByIDWithAnswers(attemptID)
	if err != nil {
		return fmt.Errorf("load attempt %d: %w", attemptID, err)
	}

	session, err := s.sessionRepo.FindByIDWithQuestions(attempt.SessionID)
	if err != nil {
		return fmt.Errorf("load session %d: %w", attempt.SessionID, err)
	}
	questions := make(map[uint]model.Question, len(session.Questions))
	for _, q := range session.Questions {
		questions[q.ID] = q
	}

	now := time.Now()
	totalScore, maxScore := 0.0, 0.0
	anyManual := false

	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		question, ok := questions[answer.QuestionID]
		if !ok {
			// Package/question drift; skip rather than fail the whole batch.
			log.Warn().Uint("attempt_id", attempt.ID).Uint("question_id", answer.QuestionID).
				Msg("Answer has no matching question definition, skipping")
			continue
		}

		points := question.EffectivePoints()
		if answer.GradedAt != nil && !answer.IsAutoGraded {
			// A standing manual grade wins over any regrade.
			if answer.MaxScore != nil {
				maxScore += *answer.MaxScore
			} else {
				maxScore += points
			}
			if answer.Score != nil {
				totalScore += *answer.Score
			}
			continue
		}
		result := s.gradeOne(question, answer.Payload, points)

		answer.Score = result.Score
		answer.MaxScore = &points
		answer.RequiresManual = result.RequiresManual
		answer.IsAutoGraded = !result.RequiresManual
		if result.Feedback != "" {
			answer.Feedback = result.Feedback
		}
		if !result.RequiresManual {
			gradedAt := now
			answer.GradedAt = &gradedAt
		}
		if err := s.answerRepo.Update(answer); err != nil {
			return fmt.Errorf("store graded answer %d: %w", answer.ID, err)
		}

		maxScore += points
		if answer.Score != nil {
			totalScore += *answer.Score
		}
		if result.RequiresManual {
			anyManual = true
			s.draftFeedback(question, answer)
		}
	}

	status := model.GradingAutoGraded
	var completedAt *time.Time
	if anyManual {
		status = model.GradingManualRequired
	} else {
		completedAt = &now
	}

	if err := s.attemptRepo.UpdateGradingOutcome(attempt.ID, totalScore, maxScore, status, completedAt); err != nil {
		return fmt.Errorf("store grading outcome for attempt %d: %w", attempt.ID, err)
	}

	s.bus.Publish(event.Event{Name: event.GradingCompleted, AttemptID: attempt.ID, Payload: map[string]interface{}{
		"grading_status": string(status),
		"total_score":    totalScore,
		"max_score":      maxScore,
	}})
	log.Info().Uint("attempt_id", attempt.ID).Str("grading_status", string(status)).
		Float64("total_score", totalScore).Float64("max_score", maxScore).Msg("Auto-grading finished")
	return nil
}

// gradeOne never lets a single bad answer abort the batch: any error or panic
// flags the answer for manual review and scoring resumes.
func (s *gradingService) gradeOne(question model.Question, payload string, points float64) (result grading.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Uint("question_id", question.ID).Msg("Grading panicked")
			result = grading.Result{MaxPoints: points, RequiresManual: true, Feedback: "automatic grading failed"}
		}
	}()

	answerKey := ""
	if question.CorrectAnswer != "" {
		plain, err := s.cipher.Decrypt(question.CorrectAnswer)
		if err != nil {
			log.Error().Err(err).Uint("question_id", question.ID).Msg("Failed to decrypt answer key")
			return grading.Result{MaxPoints: points, RequiresManual: true, Feedback: "automatic grading failed"}
		}
		answerKey = plain
	}

	threshold := 0.0
	if question.SimilarityThreshold != nil {
		threshold = *question.SimilarityThreshold
	}
	result, err := grading.Grade(grading.Question{
		Type:                question.Type,
		AnswerKey:           answerKey,
		Points:              points,
		SimilarityThreshold: threshold,
	}, payload)
	if err != nil {
		log.Error().Err(err).Uint("question_id", question.ID).Msg("Grading failed for answer")
		return grading.Result{MaxPoints: points, RequiresManual: true, Feedback: "automatic grading failed"}
	}
	return result
}

// draftFeedback asks the LLM for an advisory note a human grader can start
// from. Best effort: failures only log. Runs detached from the request since
// the grader reads the draft much later.
func (s *gradingService) draftFeedback(question model.Question, answer *model.Answer) {
	if s.feedback == nil || !s.feedback.Enabled() || question.Type != model.QuestionEssay {
		return
	}
	answerID := answer.ID
	prompt, payload := question.Prompt, answer.Payload
	go func() {
		draft, err := s.feedback.DraftFeedback(context.Background(), prompt, payload)
		if err != nil {
			log.Warn().Err(err).Uint("answer_id", answerID).Msg("Feedback draft failed")
			return
		}
		stored, err := s.answerRepo.FindByID(answerID)
		if err != nil || stored.GradedAt != nil {
			return
		}
		stored.Feedback = draft
		if err := s.answerRepo.Update(stored); err != nil {
			log.Warn().Err(err).Uint("answer_id", answerID).Msg("Failed to store feedback draft")
		}
	}()
}

func (s *gradingService) GradeManually(answerID uint, req dto.ManualGradeRequest) error {
	answer, err := s.answerRepo.FindByID(answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load answer %d: %w", answerID, err)
	}

	now := time.Now()
	score := req.Score
	answer.Score = &score
	answer.IsAutoGraded = false
	answer.RequiresManual = false
	answer.GradedAt = &now
	if req.Feedback != "" {
		answer.Feedback = req.Feedback
	}
	if err := s.answerRepo.Update(answer); err != nil {
		return fmt.Errorf("store manual grade: %w", err)
	}

	// Recompute attempt totals; once no manual answer is left ungraded the
	// attempt's grading is complete.
	answers, err := s.answerRepo.FindAllByAttempt(answer.AttemptID)
	if err != nil {
		return fmt.Errorf("load answers for attempt %d: %w", answer.AttemptID, err)
	}
	totalScore, maxScore := 0.0, 0.0
	pendingManual := false
	for _, a := range answers {
		if a.MaxScore != nil {
			maxScore += *a.MaxScore
		}
		if a.Score != nil {
			totalScore += *a.Score
		}
		if a.RequiresManual && a.Score == nil {
			pendingManual = true
		}
	}

	status := model.GradingManualRequired
	var completedAt *time.Time
	if !pendingManual {
		status = model.GradingCompleted
		completedAt = &now
	}
	return s.attemptRepo.UpdateGradingOutcome(answer.AttemptID, totalScore, maxScore, status, completedAt)
}

func (s *gradingService) PublishResult(attemptID uint) error {
	ok, err := s.attemptRepo.TransitionGradingStatus(attemptID,
		[]model.GradingStatus{model.GradingAutoGraded, model.GradingCompleted}, model.GradingPublished)
	if err != nil {
		return fmt.Errorf("publish attempt %d: %w", attemptID, err)
	}
	if !ok {
		return fmt.Errorf("%w: attempt is not in a publishable grading state", ErrBadRequest)
	}
	s.bus.Publish(event.Event{Name: event.ResultPublished, AttemptID: attemptID})
	return nil
}
