package types

import (
	"time"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "active"
	ConnectionInactive ConnectionStatus = "inactive"
	ConnectionError    ConnectionStatus = "error"
)

func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionActive, ConnectionInactive, ConnectionError:
		return true
	}
	return false
}

// Connection is a declared link to an external financial API provider.
type Connection struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	Name         string           `json:"name"`
	Provider     string           `json:"provider"`
	Status       ConnectionStatus `json:"status"`
	Logo         *string          `json:"logo,omitempty"`
	APIKey       *string          `json:"api_key,omitempty"`
	LastSync     *time.Time       `json:"last_sync,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type CreateConnectionParams struct {
	Name     string           `json:"name"`
	Provider string           `json:"provider"`
	Status   ConnectionStatus `json:"status,omitempty"`
	Logo     *string          `json:"logo,omitempty"`
	APIKey   *string          `json:"api_key,omitempty"`
}

type UpdateConnectionParams struct {
	Name         *string           `json:"name,omitempty"`
	Provider     *string           `json:"provider,omitempty"`
	Status       *ConnectionStatus `json:"status,omitempty"`
	Logo         *string           `json:"logo,omitempty"`
	APIKey       *string           `json:"api_key,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
}

// ConnectionFilter narrows the list query. Zero values mean "no filter".
type ConnectionFilter struct {
	Provider string
	Status   ConnectionStatus
	Limit    int
}
