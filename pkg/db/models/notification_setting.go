package models

import (
	"time"

	dbtypes "github.com/blogwatch/backend/pkg/db/types"
)

// NotificationSetting holds a user's stored preferences. Nullable columns mean
// "not explicitly set"; defaults are merged in the settings service, field by
// field, never wholesale.
type NotificationSetting struct {
	UserKey               string             `gorm:"type:text;primaryKey" json:"user_key"`
	Language              *string            `gorm:"type:text" json:"language,omitempty"`
	DesktopNotifications  *bool              `json:"desktop_notifications,omitempty"`
	PushNotifications     *bool              `json:"push_notifications,omitempty"`
	UpdateIntervalMinutes *int               `json:"update_interval_minutes,omitempty"`
	LocationFilterEnabled *bool              `json:"location_filter_enabled,omitempty"`
	Locations             dbtypes.StringList `gorm:"type:text" json:"locations"`
	KeywordFilterEnabled  *bool              `json:"keyword_filter_enabled,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}
