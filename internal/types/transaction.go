package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionCompleted, TransactionPending, TransactionFailed:
		return true
	}
	return false
}

// Transaction is a financial event. Amount carries the sign of the event
// (withdrawals negative, deposits positive).
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	ConnectionID *uuid.UUID        `json:"connection_id,omitempty"`
	Date         time.Time         `json:"date"`
	Description  string            `json:"description"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Source       *string           `json:"source,omitempty"`
	Metadata     json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type CreateTransactionParams struct {
	ConnectionID *uuid.UUID        `json:"connection_id,omitempty"`
	Date         time.Time         `json:"date"`
	Description  string            `json:"description"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Source       *string           `json:"source,omitempty"`
	Metadata     json.RawMessage   `json:"metadata,omitempty"`
}

type UpdateTransactionParams struct {
	Date        *time.Time         `json:"date,omitempty"`
	Description *string            `json:"description,omitempty"`
	Amount      *decimal.Decimal   `json:"amount,omitempty"`
	Currency    *string            `json:"currency,omitempty"`
	Type        *TransactionType   `json:"type,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`
	Source      *string            `json:"source,omitempty"`
	Metadata    *json.RawMessage   `json:"metadata,omitempty"`
}

// TransactionFilter narrows the list query, ordered by date descending.
type TransactionFilter struct {
	Type      TransactionType
	Status    TransactionStatus
	Source    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
