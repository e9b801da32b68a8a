package types

import (
	"time"

	"github.com/google/uuid"
)

// SecurityLog is an append-only audit row. The API exposes no update or
// delete operation for it.
type SecurityLog struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogEventParams is the payload of the log-security-event endpoint and of the
// internal audit writes performed on login and lazy row creation.
type LogEventParams struct {
	EventType   string  `json:"event_type"`
	Description string  `json:"description"`
	IPAddress   *string `json:"ip_address,omitempty"`
	UserAgent   *string `json:"user_agent,omitempty"`
}

type SecurityLogFilter struct {
	EventType string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
