package repository

import (
	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
)

type ActivityRepository interface {
	Append(entry *model.ActivityLog) error
	FindAllByAttempt(attemptID uint) ([]model.ActivityLog, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(entry *model.ActivityLog) error {
	return r.db.Create(entry).Error
}

func (r *activityRepository) FindAllByAttempt(attemptID uint) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	if err := r.db.Where("attempt_id = ?", attemptID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
