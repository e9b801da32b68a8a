package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Language string

const (
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)

// UserSettings is the one-to-one settings row for a user, created with
// defaults on signup and backfilled lazily for older accounts.
type UserSettings struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	Theme              Theme           `json:"theme"`
	Language           Language        `json:"language"`
	Notifications      bool            `json:"notifications"`
	EmailNotifications bool            `json:"email_notifications"`
	DashboardWidgets   json.RawMessage `json:"dashboard_widgets"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type UpdateSettingsParams struct {
	Theme              *Theme           `json:"theme,omitempty"`
	Language           *Language        `json:"language,omitempty"`
	Notifications      *bool            `json:"notifications,omitempty"`
	EmailNotifications *bool            `json:"email_notifications,omitempty"`
	DashboardWidgets   *json.RawMessage `json:"dashboard_widgets,omitempty"`
}

// DefaultSettings returns the row inserted when a user has no settings yet.
func DefaultSettings(userID uuid.UUID) UserSettings {
	return UserSettings{
		UserID:             userID,
		Theme:              ThemeLight,
		Language:           LanguageSpanish,
		Notifications:      true,
		EmailNotifications: true,
		DashboardWidgets:   json.RawMessage("[]"),
	}
}
