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

// GenerationOutcome carries the terminal fields written exactly once when a
// generation finishes.
type GenerationOutcome struct {
	Status           string
	ItemsGenerated   int
	Breakdown        datatypes.JSON
	ErrorMessage     string
	CompletedAt      time.Time
	ProcessingTimeMs int64
}

type GenerationRepo interface {
	Create(dbc dbctx.Context, gens []*domain.Generation) ([]*domain.Generation, error)
	GetByIDs(dbc dbctx.Context, genIDs []uuid.UUID) ([]*domain.Generation, error)
	GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Generation, error)
	CountByTopicID(dbc dbctx.Context, topicID uuid.UUID) (int64, error)
	// Finalize moves a generation from processing to a terminal state. It
	// reports false without error when the row was already terminal, so a
	// late or duplicate finalization can never overwrite the first one.
	Finalize(dbc dbctx.Context, genID uuid.UUID, outcome GenerationOutcome) (bool, error)
}

type generationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return &generationRepo{db: db, log: baseLog.With("repo", "GenerationRepo")}
}

func (r *generationRepo) Create(dbc dbctx.Context, gens []*domain.Generation) ([]*domain.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(gens) == 0 {
		return []*domain.Generation{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&gens).Error; err != nil {
		return nil, err
	}
	return gens, nil
}

func (r *generationRepo) GetByIDs(dbc dbctx.Context, genIDs []uuid.UUID) ([]*domain.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Generation
	if len(genIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", genIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generationRepo) GetByTopicID(dbc dbctx.Context, topicID uuid.UUID) ([]*domain.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Generation
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generationRepo) CountByTopicID(dbc dbctx.Context, topicID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Generation{}).
		Where("topic_id = ?", topicID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *generationRepo) Finalize(dbc dbctx.Context, genID uuid.UUID, outcome GenerationOutcome) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]any{
		"status":             outcome.Status,
		"items_generated":    outcome.ItemsGenerated,
		"error_message":      outcome.ErrorMessage,
		"completed_at":       outcome.CompletedAt,
		"processing_time_ms": outcome.ProcessingTimeMs,
		"updated_at":         time.Now(),
	}
	if outcome.Breakdown != nil {
		updates["breakdown"] = outcome.Breakdown
	}

	// The status guard makes the terminal transition single-shot.
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.Generation{}).
		Where("id = ? AND status = ?", genID, domain.GenerationStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("Finalize skipped: generation already terminal", "generation_id", genID, "status", outcome.Status)
		return false, nil
	}
	return true, nil
}
