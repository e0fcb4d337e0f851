package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderEmail    = "email"
	ProviderCalendar = "calendar"

	ConnectionStatusActive  = "active"
	ConnectionStatusRevoked = "revoked"
)

// UserConnection is a user's authorization against one external provider.
// The OAuth dance that produces these tokens lives outside the backend;
// connectors only read them.
type UserConnection struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_connection_provider" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Provider     string     `gorm:"not null;uniqueIndex:idx_user_connection_provider" json:"provider"`
	AccessToken  string     `gorm:"column:access_token" json:"-"`
	RefreshToken string     `gorm:"column:refresh_token" json:"-"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	Status       string     `gorm:"not null;default:'active'" json:"status"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserConnection) TableName() string {
	return "user_connection"
}
