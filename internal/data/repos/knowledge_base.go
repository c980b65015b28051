package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type KnowledgeBaseRepo interface {
	Create(dbc dbctx.Context, entries []*domain.KnowledgeBaseEntry) ([]*domain.KnowledgeBaseEntry, error)
	GetByIDs(dbc dbctx.Context, entryIDs []uuid.UUID) ([]*domain.KnowledgeBaseEntry, error)
	GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.KnowledgeBaseEntry, error)
	FullDeleteByIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error
	FullDeleteByDocumentIDs(dbc dbctx.Context, docIDs []uuid.UUID) error
}

type knowledgeBaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeBaseRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeBaseRepo {
	return &knowledgeBaseRepo{db: db, log: baseLog.With("repo", "KnowledgeBaseRepo")}
}

func (r *knowledgeBaseRepo) Create(dbc dbctx.Context, entries []*domain.KnowledgeBaseEntry) ([]*domain.KnowledgeBaseEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entries) == 0 {
		return []*domain.KnowledgeBaseEntry{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *knowledgeBaseRepo) GetByIDs(dbc dbctx.Context, entryIDs []uuid.UUID) ([]*domain.KnowledgeBaseEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.KnowledgeBaseEntry
	if len(entryIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", entryIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeBaseRepo) GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.KnowledgeBaseEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.KnowledgeBaseEntry
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeBaseRepo) FullDeleteByIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entryIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", entryIDs).
		Delete(&domain.KnowledgeBaseEntry{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *knowledgeBaseRepo) FullDeleteByDocumentIDs(dbc dbctx.Context, docIDs []uuid.UUID) error {
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
		Delete(&domain.KnowledgeBaseEntry{}).Error; err != nil {
		return err
	}
	return nil
}
