package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	InteractionKindEmail   = "email"
	InteractionKindMeeting = "meeting"
)

// Interaction is the normalized, contact-linkable unit derived from one
// RawEvent. The unique raw_event_id link is the idempotency anchor for the
// normalize stage: re-running it cannot derive the same event twice.
type Interaction struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	RawEventID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"raw_event_id"`
	RawEvent     *RawEvent      `gorm:"constraint:OnDelete:CASCADE;foreignKey:RawEventID;references:ID" json:"-"`
	ContactID    *uuid.UUID     `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	Contact      *Contact       `gorm:"constraint:OnDelete:SET NULL;foreignKey:ContactID;references:ID" json:"-"`
	BatchID      *uuid.UUID     `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	Kind         string         `gorm:"not null;index" json:"kind"`
	Title        string         `gorm:"column:title" json:"title"`
	Snippet      string         `gorm:"column:snippet" json:"snippet"`
	Participants datatypes.JSON `gorm:"type:jsonb;column:participants" json:"participants,omitempty"`
	Embedding    datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"-"`
	EmbeddedAt   *time.Time     `gorm:"column:embedded_at" json:"embedded_at,omitempty"`
	OccurredAt   time.Time      `gorm:"not null;index" json:"occurred_at"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Interaction) TableName() string {
	return "interaction"
}
