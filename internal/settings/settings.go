// Package settings stores per-user notification preferences. Stored rows only
// hold the fields a user explicitly set; reads merge them over the defaults
// field by field, so new preference fields pick up their default for every
// existing user.
package settings

// Settings is the fully merged preference view handed to callers.
type Settings struct {
	UserKey               string   `json:"user_key"`
	Language              string   `json:"language"`
	DesktopNotifications  bool     `json:"desktop_notifications"`
	PushNotifications     bool     `json:"push_notifications"`
	UpdateIntervalMinutes int      `json:"update_interval_minutes"`
	LocationFilterEnabled bool     `json:"location_filter_enabled"`
	Locations             []string `json:"locations"`
	KeywordFilterEnabled  bool     `json:"keyword_filter_enabled"`
	Keywords              []string `json:"keywords"`
}

// Defaults returns the settings every user starts from.
func Defaults(userKey string) Settings {
	return Settings{
		UserKey:               userKey,
		Language:              "en",
		DesktopNotifications:  true,
		PushNotifications:     true,
		UpdateIntervalMinutes: 5,
		LocationFilterEnabled: false,
		Locations:             []string{},
		KeywordFilterEnabled:  false,
		Keywords:              []string{},
	}
}

// UpdateParams carries a partial preference update. Nil fields are left
// untouched.
type UpdateParams struct {
	Language              *string   `json:"language,omitempty" validate:"omitempty,oneof=en hu sv"`
	DesktopNotifications  *bool     `json:"desktop_notifications,omitempty"`
	PushNotifications     *bool     `json:"push_notifications,omitempty"`
	UpdateIntervalMinutes *int      `json:"update_interval_minutes,omitempty" validate:"omitempty,oneof=1 5 15 30 60"`
	LocationFilterEnabled *bool     `json:"location_filter_enabled,omitempty"`
	Locations             *[]string `json:"locations,omitempty"`
	KeywordFilterEnabled  *bool     `json:"keyword_filter_enabled,omitempty"`
	Keywords              *[]string `json:"keywords,omitempty" validate:"omitempty,max=20,dive,min=3"`
}
