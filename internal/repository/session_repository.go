package repository

import (
	"github.com/quinloq/examgate/internal/model"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(session *model.ExamSession) error
	FindByID(id uint) (*model.ExamSession, error)
	FindByIDWithQuestions(id uint) (*model.ExamSession, error)
	FindToken(sessionID, userID uint) (*model.SessionToken, error)
	CreateToken(token *model.SessionToken) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.ExamSession) error {
	return r.db.Create(session).Error
}

func (r *sessionRepository) FindByID(id uint) (*model.ExamSession, error) {
	var session model.ExamSession
	if err := r.db.First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByIDWithQuestions(id uint) (*model.ExamSession, error) {
	var session model.ExamSession
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.position ASC")
	}).First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindToken(sessionID, userID uint) (*model.SessionToken, error) {
	var token model.SessionToken
	if err := r.db.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *sessionRepository) CreateToken(token *model.SessionToken) error {
	return r.db.Create(token).Error
}
