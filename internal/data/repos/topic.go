package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	pkgerrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type TopicRepo interface {
	Create(dbc dbctx.Context, topics []*domain.Topic) ([]*domain.Topic, error)
	GetByID(dbc dbctx.Context, topicID uuid.UUID) (*domain.Topic, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Topic, error)
	FullDeleteByIDs(dbc dbctx.Context, topicIDs []uuid.UUID) error
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) Create(dbc dbctx.Context, topics []*domain.Topic) ([]*domain.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(topics) == 0 {
		return []*domain.Topic{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepo) GetByID(dbc dbctx.Context, topicID uuid.UUID) (*domain.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var topic domain.Topic
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", topicID).
		First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Topic
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *topicRepo) FullDeleteByIDs(dbc dbctx.Context, topicIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(topicIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", topicIDs).
		Delete(&domain.Topic{}).Error; err != nil {
		return err
	}
	return nil
}
