package types

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	ContactID *uuid.UUID `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	Contact   *Contact   `gorm:"constraint:OnDelete:SET NULL;foreignKey:ContactID;references:ID" json:"-"`
	Body      string     `gorm:"not null;column:body" json:"body"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Note) TableName() string {
	return "note"
}
