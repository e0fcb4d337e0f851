package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobKindProviderSync    = "provider_sync"
	JobKindNormalize       = "normalize"
	JobKindExtractContacts = "extract_contacts"
	JobKindEmbed           = "embed"

	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusError      = "error"
)

// Job is one durable unit of pipeline work. The jobs table is the queue;
// there is no separate broker. Rows are never deleted: undo marks them
// done so the audit trail survives.
type Job struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Kind        string         `gorm:"not null;index" json:"kind"`
	BatchID     *uuid.UUID     `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	Status      string         `gorm:"not null;index;default:'queued'" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   *string        `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	ClaimedAt   *time.Time     `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	Result      datatypes.JSON `gorm:"type:jsonb;column:result" json:"result"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string {
	return "job"
}
