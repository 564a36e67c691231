package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription is one browser push endpoint. DeviceID is derived from the
// endpoint when the client does not supply one, so a user can hold several
// subscriptions without duplicate rows.
type PushSubscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Endpoint  string     `gorm:"type:text;not null;uniqueIndex:ux_push_subscriptions_endpoint" json:"endpoint"`
	Auth      string     `gorm:"type:text;not null" json:"-"`
	P256dh    string     `gorm:"type:text;not null" json:"-"`
	UserKey   *string    `gorm:"type:text;index" json:"user_key,omitempty"`
	DeviceID  string     `gorm:"type:text;not null" json:"device_id"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
