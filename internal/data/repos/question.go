package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type QuestionRepo interface {
	Create(dbc dbctx.Context, questions []*domain.Question) ([]*domain.Question, error)
	GetByIDs(dbc dbctx.Context, questionIDs []uuid.UUID) ([]*domain.Question, error)
	GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Question, error)
	CountByTopicID(dbc dbctx.Context, topicID uuid.UUID) (int64, error)
	SetSaved(dbc dbctx.Context, questionID uuid.UUID, saved bool) error
	UpdateReviewSchedule(dbc dbctx.Context, questionID uuid.UUID, intervalDays int, reviewedAt, nextReviewAt time.Time) error
	GetDueForReview(dbc dbctx.Context, userID uuid.UUID, due time.Time) ([]*domain.Question, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(dbc dbctx.Context, questions []*domain.Question) ([]*domain.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(questions) == 0 {
		return []*domain.Question{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) GetByIDs(dbc dbctx.Context, questionIDs []uuid.UUID) ([]*domain.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Question
	if len(questionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", questionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Question
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) CountByTopicID(dbc dbctx.Context, topicID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Question{}).
		Where("topic_id = ?", topicID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *questionRepo) SetSaved(dbc dbctx.Context, questionID uuid.UUID, saved bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Question{}).
		Where("id = ?", questionID).
		Updates(map[string]any{"is_saved": saved, "updated_at": time.Now()}).Error; err != nil {
		return err
	}
	return nil
}

func (r *questionRepo) UpdateReviewSchedule(dbc dbctx.Context, questionID uuid.UUID, intervalDays int, reviewedAt, nextReviewAt time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Question{}).
		Where("id = ?", questionID).
		Updates(map[string]any{
			"review_interval_days": intervalDays,
			"last_reviewed_at":     reviewedAt,
			"next_review_at":       nextReviewAt,
			"updated_at":           time.Now(),
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *questionRepo) GetDueForReview(dbc dbctx.Context, userID uuid.UUID, due time.Time) ([]*domain.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Question
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND is_saved = ? AND (next_review_at IS NULL OR next_review_at <= ?)", userID, true, due).
		Order("next_review_at ASC NULLS FIRST").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
