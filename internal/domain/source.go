package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SourceStatusProcessing = "processing"
	SourceStatusCompleted  = "completed"
	SourceStatusFailed     = "failed"
)

// Source is the provenance unit: the thing a generation can be attributed
// to. Exactly one Source is created per successful ingestion call.
type Source struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"topic_id"`
	Topic      *Topic     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	DocumentID *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`

	KnowledgeBaseEntryID uuid.UUID `gorm:"type:uuid;not null;index" json:"knowledge_base_entry_id"`

	Kind         string `gorm:"column:kind;not null;index" json:"kind"`
	DisplayName  string `gorm:"column:display_name;not null" json:"display_name"`
	OriginalName string `gorm:"column:original_name" json:"original_name"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	WordCount    int    `gorm:"column:word_count" json:"word_count"`

	ProcessingStatus string     `gorm:"column:processing_status;not null;default:'processing';index" json:"processing_status"`
	IngestedAt       time.Time  `gorm:"column:ingested_at;not null" json:"ingested_at"`
	ProcessedAt      *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Source) TableName() string { return "source" }
