package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type SourceRepo interface {
	Create(dbc dbctx.Context, sources []*domain.Source) ([]*domain.Source, error)
	GetByIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) ([]*domain.Source, error)
	GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Source, error)
	MarkProcessed(dbc dbctx.Context, sourceID uuid.UUID, status string) error
	FullDeleteByIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) error
	FullDeleteByDocumentIDs(dbc dbctx.Context, docIDs []uuid.UUID) error
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) Create(dbc dbctx.Context, sources []*domain.Source) ([]*domain.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sources) == 0 {
		return []*domain.Source{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *sourceRepo) GetByIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) ([]*domain.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Source
	if len(sourceIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", sourceIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sourceRepo) GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Source
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Order("ingested_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkProcessed stamps processed_at with the current time, which keeps the
// processed_at >= ingested_at invariant for rows created in this process.
func (r *sourceRepo) MarkProcessed(dbc dbctx.Context, sourceID uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Source{}).
		Where("id = ?", sourceID).
		Updates(map[string]any{
			"processing_status": status,
			"processed_at":      now,
			"updated_at":        now,
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *sourceRepo) FullDeleteByIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sourceIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", sourceIDs).
		Delete(&domain.Source{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *sourceRepo) FullDeleteByDocumentIDs(dbc dbctx.Context, docIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(docIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("document_id IN ?", docIDs).
		Delete(&domain.Source{}).Error; err != nil {
		return err
	}
	return nil
}
