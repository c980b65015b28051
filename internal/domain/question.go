package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is the generated study artifact. Payload carries the typed
// flashcard/multiple-choice/open-ended/summary body. IsSaved and the review
// scheduling fields are the only columns mutated after create.
type Question struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID      uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	GenerationID uuid.UUID `gorm:"type:uuid;not null;index" json:"generation_id"`

	ItemType string         `gorm:"column:item_type;not null;index" json:"item_type"`
	Payload  datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`

	// SourceAttribution duplicates the generation_item_sources rows for
	// direct query convenience on the question itself.
	SourceAttribution datatypes.JSON `gorm:"column:source_attribution;type:jsonb" json:"source_attribution"`

	IsSaved bool `gorm:"column:is_saved;not null;default:false;index" json:"is_saved"`

	// Spaced-repetition scheduling (interval-doubling policy).
	ReviewIntervalDays int        `gorm:"column:review_interval_days;not null;default:0" json:"review_interval_days"`
	LastReviewedAt     *time.Time `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`
	NextReviewAt       *time.Time `gorm:"column:next_review_at;index" json:"next_review_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }
