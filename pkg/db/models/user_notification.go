package models

import (
	"time"

	"github.com/google/uuid"
)

// UserNotification tracks one user's read state for a shared Notification.
// (user_key, notification_id) is unique.
type UserNotification struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserKey        string     `gorm:"type:text;not null;uniqueIndex:ux_user_notifications_user_notification" json:"user_key"`
	NotificationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_user_notifications_user_notification" json:"notification_id"`
	IsRead         bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
