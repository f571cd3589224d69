package repository

import (
	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	Create(answer *model.Answer) error
	Update(answer *model.Answer) error
	FindByIdempotencyKey(key string) (*model.Answer, error)
	FindByAttemptAndQuestion(attemptID, questionID uint) (*model.Answer, error)
	FindByID(id uint) (*model.Answer, error)
	FindAllByAttempt(attemptID uint) ([]model.Answer, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(answer *model.Answer) error {
	return r.db.Create(answer).Error
}

func (r *answerRepository) Update(answer *model.Answer) error {
	return r.db.Save(answer).Error
}

func (r *answerRepository) FindByIdempotencyKey(key string) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.Where("idempotency_key = ?", key).First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindByID(id uint) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindAllByAttempt(attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	if err := r.db.Where("attempt_id = ?", attemptID).Order("question_id ASC").Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}
