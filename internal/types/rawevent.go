package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RawEvent is one provider-sourced artifact (an email, a calendar entry)
// exactly as the connector handed it over. The unique index on
// (user_id, provider, source_id) is what makes re-ingestion idempotent:
// the store, not application logic, decides "already ingested".
type RawEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_raw_event_source" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Provider   string         `gorm:"not null;uniqueIndex:idx_raw_event_source" json:"provider"`
	SourceID   *string        `gorm:"uniqueIndex:idx_raw_event_source" json:"source_id,omitempty"`
	Payload    datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	SourceMeta datatypes.JSON `gorm:"type:jsonb;column:source_meta" json:"source_meta,omitempty"`
	OccurredAt time.Time      `gorm:"not null;index" json:"occurred_at"`
	BatchID    *uuid.UUID     `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	ContactID  *uuid.UUID     `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	Contact    *Contact       `gorm:"constraint:OnDelete:SET NULL;foreignKey:ContactID;references:ID" json:"-"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (RawEvent) TableName() string {
	return "raw_event"
}
