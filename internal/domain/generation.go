package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

const (
	GenerationTypeBulk       = "bulk"
	GenerationTypeSelective  = "selective"
	GenerationTypeDirectText = "direct_text"
)

// Generation is one completion-service run. SourceIDs holds the resolved,
// validated set actually used as input, never the raw caller input. Status
// moves from processing to exactly one terminal state and is never re-opened.
type Generation struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	GenerationType string         `gorm:"column:generation_type;not null" json:"generation_type"`
	SourceIDs      datatypes.JSON `gorm:"column:source_ids;type:jsonb" json:"source_ids"`

	Status         string         `gorm:"column:status;not null;default:'processing';index" json:"status"`
	ItemsGenerated int            `gorm:"column:items_generated" json:"items_generated"`
	Breakdown      datatypes.JSON `gorm:"column:breakdown;type:jsonb" json:"breakdown"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message,omitempty"`

	StartedAt        time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ProcessingTimeMs int64      `gorm:"column:processing_time_ms" json:"processing_time_ms"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Generation) TableName() string { return "generation" }
