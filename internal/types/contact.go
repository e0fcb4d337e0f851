package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Contact struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_contact_user_email" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Email       string         `gorm:"not null;uniqueIndex:idx_contact_user_email;column:email" json:"email"`
	DisplayName string         `gorm:"column:display_name" json:"display_name"`
	Company     string         `gorm:"column:company" json:"company"`
	Meta        datatypes.JSON `gorm:"type:jsonb;column:meta" json:"meta,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contact"
}
