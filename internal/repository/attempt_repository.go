package repository

import (
	"time"

	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless a row with its idempotency key
	// already exists. It reports whether this call created the row; either way
	// the returned attempt is the surviving one.
	CreateIfAbsent(attempt *model.Attempt) (*model.Attempt, bool, error)
	FindByID(id uint) (*model.Attempt, error)
	FindByIDWithAnswers(id uint) (*model.Attempt, error)
	FindByIdempotencyKey(key string) (*model.Attempt, error)
	// TransitionStatus performs a single-row conditional update; it reports
	// whether the transition happened (false when the attempt was already out
	// of the from-status).
	TransitionStatus(id uint, from, to model.AttemptStatus, submittedAt time.Time) (bool, error)
	// TransitionGradingStatus advances the grading status only when the
	// current value is one of the allowed predecessors.
	TransitionGradingStatus(id uint, from []model.GradingStatus, to model.GradingStatus) (bool, error)
	UpdateGradingOutcome(id uint, totalScore, maxScore float64, status model.GradingStatus, completedAt *time.Time) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) CreateIfAbsent(attempt *model.Attempt) (*model.Attempt, bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(attempt)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return attempt, true, nil
	}
	// Lost the race: the winner's row is the attempt.
	existing, err := r.FindByIdempotencyKey(attempt.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithAnswers(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.Preload("Answers").First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIdempotencyKey(key string) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.Where("idempotency_key = ?", key).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) TransitionStatus(id uint, from, to model.AttemptStatus, submittedAt time.Time) (bool, error) {
	res := r.db.Model(&model.Attempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "submitted_at": submittedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attemptRepository) TransitionGradingStatus(id uint, from []model.GradingStatus, to model.GradingStatus) (bool, error) {
	res := r.db.Model(&model.Attempt{}).
		Where("id = ? AND grading_status IN ?", id, from).
		Update("grading_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attemptRepository) UpdateGradingOutcome(id uint, totalScore, maxScore float64, status model.GradingStatus, completedAt *time.Time) error {
	// Guarded against regression: once COMPLETED or PUBLISHED, a re-run of the
	// reconciler must not move the status backwards.
	return r.db.Model(&model.Attempt{}).
		Where("id = ? AND grading_status NOT IN ?", id, []model.GradingStatus{model.GradingCompleted, model.GradingPublished}).
		Updates(map[string]interface{}{
			"total_score":          totalScore,
			"max_score":            maxScore,
			"grading_status":       status,
			"grading_completed_at": completedAt,
		}).Error
}
