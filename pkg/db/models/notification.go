package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the shared payload fanned out to users. PostID is nil for
// test notifications that have no backing post.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    *string    `gorm:"type:text" json:"post_id,omitempty"`
	Title     string     `gorm:"type:text;not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	ImageURL  *string    `gorm:"type:text" json:"image_url,omitempty"`
	IsUrgent  bool       `gorm:"not null;default:false" json:"is_urgent"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
}
