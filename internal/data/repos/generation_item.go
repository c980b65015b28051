package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type GenerationItemRepo interface {
	// Create persists the items together with their attribution join rows.
	Create(dbc dbctx.Context, items []*domain.GenerationItem, joins []*domain.GenerationItemSource) ([]*domain.GenerationItem, error)
	GetByGenerationIDs(dbc dbctx.Context, genIDs []uuid.UUID) ([]*domain.GenerationItem, error)
	// CountBySourceID answers the containment question "how many generated
	// items were derived from this source" as a join-table count.
	CountBySourceID(dbc dbctx.Context, sourceID uuid.UUID) (int64, error)
	GetSourceIDsByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

type generationItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationItemRepo(db *gorm.DB, baseLog *logger.Logger) GenerationItemRepo {
	return &generationItemRepo{db: db, log: baseLog.With("repo", "GenerationItemRepo")}
}

func (r *generationItemRepo) Create(dbc dbctx.Context, items []*domain.GenerationItem, joins []*domain.GenerationItemSource) ([]*domain.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(items) == 0 {
		return []*domain.GenerationItem{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	if len(joins) > 0 {
		if err := transaction.WithContext(dbc.Ctx).Create(&joins).Error; err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *generationItemRepo) GetByGenerationIDs(dbc dbctx.Context, genIDs []uuid.UUID) ([]*domain.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.GenerationItem
	if len(genIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("generation_id IN ?", genIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generationItemRepo) CountBySourceID(dbc dbctx.Context, sourceID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.GenerationItemSource{}).
		Where("source_id = ?", sourceID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *generationItemRepo) GetSourceIDsByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	out := map[uuid.UUID][]uuid.UUID{}
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []*domain.GenerationItemSource
	if err := transaction.WithContext(dbc.Ctx).
		Where("generation_item_id IN ?", itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GenerationItemID] = append(out[row.GenerationItemID], row.SourceID)
	}
	return out, nil
}
