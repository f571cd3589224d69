package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quinloq/examgate/config"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/quinloq/examgate/internal/scheduler"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SyncService ingests batches of offline-logged mutations and replays them
// against the live attempt endpoints. Acceptance and processing are separate
// phases: PushBatch only persists and schedules; Process does the replay.
type SyncService interface {
	PushBatch(req dto.SyncPushRequest) (*dto.SyncPushResponse, error)
	// Process is the scheduler handler for sync jobs; payload is the item's
	// idempotency key.
	Process(ctx context.Context, payload string) error
	Retry(syncItemID uint) error
	Status(attemptID uint) (*dto.SyncStatusResponse, error)
	Checkpoint(userID uint) (*dto.CheckpointResponse, error)
}

type syncService struct {
	syncRepo     repository.SyncRepository
	activityRepo repository.ActivityRepository
	attempts     AttemptService
	sched        *scheduler.Scheduler
	maxRetries   int
}

func NewSyncService(
	syncRepo repository.SyncRepository,
	activityRepo repository.ActivityRepository,
	attempts AttemptService,
	sched *scheduler.Scheduler,
	cfg *config.Config,
) SyncService {
	return &syncService{
		syncRepo:     syncRepo,
		activityRepo: activityRepo,
		attempts:     attempts,
		sched:        sched,
		maxRetries:   cfg.Sync.MaxRetries,
	}
}

func (s *syncService) PushBatch(req dto.SyncPushRequest) (*dto.SyncPushResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyBatch
	}

	resp := &dto.SyncPushResponse{Results: make([]dto.SyncItemResult, 0, len(req.Items))}
	now := time.Now()
	for _, in := range req.Items {
		item := &model.SyncQueueItem{
			IdempotencyKey: in.IdempotencyKey,
			Type:           model.SyncItemType(in.Type),
			AttemptID:      in.AttemptID,
			UserID:         req.UserID,
			Payload:        string(in.Payload),
			Status:         model.SyncPending,
			MaxRetries:     s.maxRetries,
			LoggedAt:       in.LoggedAt,
		}
		inserted, err := s.syncRepo.InsertIgnore(item)
		if err != nil {
			log.Error().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("Failed to persist sync item")
			resp.Rejected++
			resp.Results = append(resp.Results, dto.SyncItemResult{IdempotencyKey: in.IdempotencyKey, Status: "REJECTED"})
			continue
		}
		if !inserted {
			// Already pushed in an earlier batch; the first write won.
			resp.Duplicates++
			resp.Results = append(resp.Results, dto.SyncItemResult{IdempotencyKey: in.IdempotencyKey, Status: "DUPLICATE"})
			continue
		}
		if err := s.sched.Enqueue(SyncJobID(in.IdempotencyKey), KindSyncProcess, in.IdempotencyKey, now, s.maxRetries); err != nil {
			return nil, fmt.Errorf("schedule sync item %s: %w", in.IdempotencyKey, err)
		}
		resp.Accepted++
		resp.Results = append(resp.Results, dto.SyncItemResult{IdempotencyKey: in.IdempotencyKey, Status: "ACCEPTED"})
	}
	log.Info().Uint("user_id", req.UserID).Int("accepted", resp.Accepted).
		Int("duplicates", resp.Duplicates).Int("rejected", resp.Rejected).Msg("Sync batch ingested")
	return resp, nil
}

// Process replays one queued item. Terminal item states short-circuit to
// success so a redelivered job never reprocesses a finished item.
func (s *syncService) Process(ctx context.Context, payload string) error {
	item, err := s.syncRepo.FindByKey(payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("idempotency_key", payload).Msg("Sync job references an unknown item")
			return nil
		}
		return fmt.Errorf("load sync item %s: %w", payload, err)
	}

	switch item.Status {
	case model.SyncCompleted, model.SyncDeadLetter:
		return nil
	case model.SyncFailed:
		// A scheduler redelivery after a failed run; rearm the item first.
		if _, err := s.syncRepo.ResetToPending(item.IdempotencyKey, model.SyncFailed); err != nil {
			return fmt.Errorf("reset sync item %s: %w", item.IdempotencyKey, err)
		}
	}

	claimed, err := s.syncRepo.ClaimProcessing(item.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("claim sync item %s: %w", item.IdempotencyKey, err)
	}
	if !claimed {
		log.Debug().Str("idempotency_key", item.IdempotencyKey).Msg("Sync item claimed elsewhere, skipping")
		return nil
	}

	replayErr := s.replay(item)
	now := time.Now()
	if replayErr == nil {
		item.Status = model.SyncCompleted
		item.ProcessedAt = &now
		item.LastError = ""
		if err := s.syncRepo.Update(item); err != nil {
			return fmt.Errorf("complete sync item %s: %w", item.IdempotencyKey, err)
		}
		return nil
	}

	item.RetryCount++
	item.LastError = replayErr.Error()
	if item.RetryCount >= item.MaxRetries {
		item.Status = model.SyncDeadLetter
		log.Error().Err(replayErr).Str("idempotency_key", item.IdempotencyKey).Str("type", string(item.Type)).
			Int("retry_count", item.RetryCount).Msg("Sync item moved to dead letter")
	} else {
		item.Status = model.SyncFailed
	}
	if err := s.syncRepo.Update(item); err != nil {
		return fmt.Errorf("record sync failure for %s: %w", item.IdempotencyKey, err)
	}
	if item.Status == model.SyncDeadLetter {
		// The job must not retry past the item's budget.
		return nil
	}
	return replayErr
}

func (s *syncService) replay(item *model.SyncQueueItem) error {
	switch item.Type {
	case model.SyncSubmitAnswer:
		var payload dto.AnswerMutationPayload
		if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
			return fmt.Errorf("decode answer payload: %w", err)
		}
		key := payload.IdempotencyKey
		if key == "" {
			key = item.IdempotencyKey
		}
		_, err := s.attempts.ReplayAnswer(dto.SubmitAnswerRequest{
			AttemptID:      item.AttemptID,
			QuestionID:     payload.QuestionID,
			IdempotencyKey: key,
			Answer:         payload.Answer,
			MediaURLs:      payload.MediaURLs,
		}, item.LoggedAt)
		if errors.Is(err, ErrAttemptClosed) {
			// Logged after the submission; dropping it is the correct outcome
			// and retrying cannot change it.
			log.Info().Str("idempotency_key", item.IdempotencyKey).Uint("attempt_id", item.AttemptID).
				Msg("Dropped post-submission answer edit")
			return nil
		}
		return err
	case model.SyncSubmitExam:
		_, err := s.attempts.SubmitExam(dto.SubmitExamRequest{
			AttemptID:      item.AttemptID,
			IdempotencyKey: item.IdempotencyKey,
		})
		return err
	case model.SyncActivityLog:
		var payload dto.ActivityLogPayload
		if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
			return fmt.Errorf("decode activity payload: %w", err)
		}
		return s.activityRepo.Append(&model.ActivityLog{
			AttemptID: item.AttemptID,
			EventType: payload.EventType,
			Payload:   string(payload.Detail),
			LoggedAt:  item.LoggedAt,
		})
	default:
		return fmt.Errorf("unknown sync item type %q", item.Type)
	}
}

// Retry rearms a FAILED item on operator request. DEAD_LETTER items stay dead;
// COMPLETED and in-flight items are not retryable either.
func (s *syncService) Retry(syncItemID uint) error {
	item, err := s.syncRepo.FindByID(syncItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load sync item %d: %w", syncItemID, err)
	}
	if item.Status != model.SyncFailed {
		return ErrNotRetryable
	}
	reset, err := s.syncRepo.ResetToPending(item.IdempotencyKey, model.SyncFailed)
	if err != nil {
		return fmt.Errorf("reset sync item %s: %w", item.IdempotencyKey, err)
	}
	if !reset {
		return ErrNotRetryable
	}
	return s.sched.Requeue(SyncJobID(item.IdempotencyKey))
}

func (s *syncService) Status(attemptID uint) (*dto.SyncStatusResponse, error) {
	items, err := s.syncRepo.ListByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("list sync items for attempt %d: %w", attemptID, err)
	}
	counts, err := s.syncRepo.CountByStatus(attemptID)
	if err != nil {
		return nil, fmt.Errorf("count sync items for attempt %d: %w", attemptID, err)
	}

	resp := &dto.SyncStatusResponse{
		AttemptID: attemptID,
		Counts:    make(map[string]int64, len(counts)),
		Items:     make([]dto.SyncItemDTO, 0, len(items)),
	}
	for status, count := range counts {
		resp.Counts[string(status)] = count
	}
	for _, item := range items {
		resp.Items = append(resp.Items, dto.SyncItemDTO{
			ID:             item.ID,
			IdempotencyKey: item.IdempotencyKey,
			Type:           string(item.Type),
			AttemptID:      item.AttemptID,
			Status:         string(item.Status),
			RetryCount:     item.RetryCount,
			MaxRetries:     item.MaxRetries,
			LastError:      item.LastError,
			ProcessedAt:    item.ProcessedAt,
			CreatedAt:      item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *syncService) Checkpoint(userID uint) (*dto.CheckpointResponse, error) {
	lastSyncedAt, err := s.syncRepo.LatestCompletedAt(userID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for user %d: %w", userID, err)
	}
	return &dto.CheckpointResponse{UserID: userID, LastSyncedAt: lastSyncedAt}, nil
}
