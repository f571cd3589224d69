package repository

import (
	"time"

	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRepository interface {
	// EnqueueIgnore inserts the job unless its deterministic id already
	// exists, collapsing duplicate scheduling requests.
	EnqueueIgnore(job *model.ScheduledJob) (bool, error)
	FindByID(id string) (*model.ScheduledJob, error)
	// Due returns pending jobs whose run time has arrived.
	Due(now time.Time, limit int) ([]model.ScheduledJob, error)
	// Claim moves pending→running conditionally so each job runs on exactly
	// one worker at a time.
	Claim(id string) (bool, error)
	MarkCompleted(id string) error
	// Reschedule returns a running job to pending with a new run time after a
	// failed attempt.
	Reschedule(id string, runAt time.Time, attempts int, lastError string) error
	MarkFailed(id string, attempts int, lastError string) error
	// Requeue resets any non-running job to pending with a fresh attempt
	// budget (used for explicit operator retries).
	Requeue(id string, runAt time.Time) (bool, error)
	// ReclaimStale returns running jobs untouched since the cutoff to
	// pending, recovering claims held by a crashed worker.
	ReclaimStale(cutoff time.Time) (int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) EnqueueIgnore(job *model.ScheduledJob) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(job)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepository) FindByID(id string) (*model.ScheduledJob, error) {
	var job model.ScheduledJob
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Due(now time.Time, limit int) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	err := r.db.Where("status = ? AND run_at <= ?", model.JobPending, now).
		Order("run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) Claim(id string) (bool, error) {
	res := r.db.Model(&model.ScheduledJob{}).
		Where("id = ? AND status = ?", id, model.JobPending).
		Update("status", model.JobRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepository) MarkCompleted(id string) error {
	return r.db.Model(&model.ScheduledJob{}).
		Where("id = ?", id).
		Update("status", model.JobCompleted).Error
}

func (r *jobRepository) Reschedule(id string, runAt time.Time, attempts int, lastError string) error {
	return r.db.Model(&model.ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.JobPending,
			"run_at":     runAt,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

func (r *jobRepository) MarkFailed(id string, attempts int, lastError string) error {
	return r.db.Model(&model.ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.JobFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

func (r *jobRepository) ReclaimStale(cutoff time.Time) (int64, error) {
	res := r.db.Model(&model.ScheduledJob{}).
		Where("status = ? AND updated_at < ?", model.JobRunning, cutoff).
		Update("status", model.JobPending)
	return res.RowsAffected, res.Error
}

func (r *jobRepository) Requeue(id string, runAt time.Time) (bool, error) {
	res := r.db.Model(&model.ScheduledJob{}).
		Where("id = ? AND status <> ?", id, model.JobRunning).
		Updates(map[string]interface{}{
			"status":   model.JobPending,
			"run_at":   runAt,
			"attempts": 0,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
