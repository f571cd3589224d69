package repository

import (
	"time"

	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncRepository interface {
	// InsertIgnore persists the item unless its idempotency key was already
	// seen; first write wins, duplicates are absorbed.
	InsertIgnore(item *model.SyncQueueItem) (bool, error)
	FindByKey(key string) (*model.SyncQueueItem, error)
	FindByID(id uint) (*model.SyncQueueItem, error)
	Update(item *model.SyncQueueItem) error
	// ClaimProcessing moves PENDING→PROCESSING conditionally so no two
	// executions of the same item overlap.
	ClaimProcessing(key string) (bool, error)
	ResetToPending(key string, from model.SyncItemStatus) (bool, error)
	ListByAttempt(attemptID uint) ([]model.SyncQueueItem, error)
	CountByStatus(attemptID uint) (map[model.SyncItemStatus]int64, error)
	LatestCompletedAt(userID uint) (*time.Time, error)
}

type syncRepository struct {
	db *gorm.DB
}

func NewSyncRepository(db *gorm.DB) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) InsertIgnore(item *model.SyncQueueItem) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *syncRepository) FindByKey(key string) (*model.SyncQueueItem, error) {
	var item model.SyncQueueItem
	if err := r.db.Where("idempotency_key = ?", key).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *syncRepository) FindByID(id uint) (*model.SyncQueueItem, error) {
	var item model.SyncQueueItem
	if err := r.db.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *syncRepository) Update(item *model.SyncQueueItem) error {
	return r.db.Save(item).Error
}

func (r *syncRepository) ClaimProcessing(key string) (bool, error) {
	res := r.db.Model(&model.SyncQueueItem{}).
		Where("idempotency_key = ? AND status = ?", key, model.SyncPending).
		Update("status", model.SyncProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *syncRepository) ResetToPending(key string, from model.SyncItemStatus) (bool, error) {
	res := r.db.Model(&model.SyncQueueItem{}).
		Where("idempotency_key = ? AND status = ?", key, from).
		Update("status", model.SyncPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *syncRepository) ListByAttempt(attemptID uint) ([]model.SyncQueueItem, error) {
	var items []model.SyncQueueItem
	if err := r.db.Where("attempt_id = ?", attemptID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *syncRepository) CountByStatus(attemptID uint) (map[model.SyncItemStatus]int64, error) {
	var rows []struct {
		Status model.SyncItemStatus
		Count  int64
	}
	err := r.db.Model(&model.SyncQueueItem{}).
		Select("status, COUNT(*) as count").
		Where("attempt_id = ?", attemptID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.SyncItemStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *syncRepository) LatestCompletedAt(userID uint) (*time.Time, error) {
	var item model.SyncQueueItem
	err := r.db.Where("user_id = ? AND status = ?", userID, model.SyncCompleted).
		Order("processed_at DESC").
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return item.ProcessedAt, nil
}
