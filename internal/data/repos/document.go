package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, docs []*domain.Document) ([]*domain.Document, error)
	GetByIDs(dbc dbctx.Context, docIDs []uuid.UUID) ([]*domain.Document, error)
	GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Document, error)
	UpdateDisplay(dbc dbctx.Context, docID uuid.UUID, originalName string, metadata datatypes.JSON) error
	FullDeleteByIDs(dbc dbctx.Context, docIDs []uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, docs []*domain.Document) ([]*domain.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(docs) == 0 {
		return []*domain.Document{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, docIDs []uuid.UUID) ([]*domain.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Document
	if len(docIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", docIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Document
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateDisplay changes the display name and free-form metadata. These are
// the only mutable Document fields.
func (r *documentRepo) UpdateDisplay(dbc dbctx.Context, docID uuid.UUID, originalName string, metadata datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]any{"updated_at": time.Now()}
	if originalName != "" {
		updates["original_name"] = originalName
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", docID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *documentRepo) FullDeleteByIDs(dbc dbctx.Context, docIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(docIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", docIDs).
		Delete(&domain.Document{}).Error; err != nil {
		return err
	}
	return nil
}
