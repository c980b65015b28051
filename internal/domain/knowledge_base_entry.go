package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KnowledgeBaseEntry is the durable extracted text for a Document (at most
// one per Document) or for a pure-text/web/video source with no Document
// binary. Rows are never mutated after create.
type KnowledgeBaseEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"topic_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	DocumentID *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Document   *Document  `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
	SourceLabel string         `gorm:"column:source_label;not null" json:"source_label"`
	Text        string         `gorm:"column:text;not null" json:"text"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (KnowledgeBaseEntry) TableName() string { return "knowledge_base_entry" }
