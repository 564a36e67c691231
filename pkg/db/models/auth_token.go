package models

import "time"

// AuthToken stores an opaque session token. Rows idle past the configured TTL
// are purged by the cleanup job.
type AuthToken struct {
	SessionID    string    `gorm:"type:text;primaryKey" json:"session_id"`
	UserID       string    `gorm:"type:text;index" json:"user_id"`
	Token        string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastAccessed time.Time `gorm:"not null" json:"last_accessed"`
}
