package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ItemTypeFlashcard      = "flashcard"
	ItemTypeMultipleChoice = "multiple_choice"
	ItemTypeOpenEnded      = "open_ended"
	ItemTypeSummary        = "summary"
)

// GenerationItem links one generated Question to its Generation and the
// Sources it was derived from. DerivedFrom duplicates the join rows for
// cheap reads; the join table is authoritative.
type GenerationItem struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GenerationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"generation_id"`
	Generation   *Generation `gorm:"constraint:OnDelete:CASCADE;foreignKey:GenerationID;references:ID" json:"generation,omitempty"`
	QuestionID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"question_id"`

	ItemType    string         `gorm:"column:item_type;not null" json:"item_type"`
	Title       string         `gorm:"column:title" json:"title"`
	Difficulty  string         `gorm:"column:difficulty" json:"difficulty"`
	DerivedFrom datatypes.JSON `gorm:"column:derived_from;type:jsonb" json:"derived_from"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (GenerationItem) TableName() string { return "generation_item" }

// GenerationItemSource is the attribution join row. Foreign keys replace the
// loose array the history reporter used to scan; containment queries become
// counts over this table.
type GenerationItemSource struct {
	GenerationItemID uuid.UUID       `gorm:"type:uuid;not null;primaryKey" json:"generation_item_id"`
	GenerationItem   *GenerationItem `gorm:"constraint:OnDelete:CASCADE;foreignKey:GenerationItemID;references:ID" json:"generation_item,omitempty"`
	SourceID         uuid.UUID       `gorm:"type:uuid;not null;primaryKey;index" json:"source_id"`
	Source           *Source         `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"source,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (GenerationItemSource) TableName() string { return "generation_item_sources" }
