package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AutomationType string

const (
	AutomationSchedule  AutomationType = "schedule"
	AutomationCondition AutomationType = "condition"
	AutomationWebhook   AutomationType = "webhook"
)

func (t AutomationType) Valid() bool {
	switch t {
	case AutomationSchedule, AutomationCondition, AutomationWebhook:
		return true
	}
	return false
}

type AutomationStatus string

const (
	AutomationActive AutomationStatus = "active"
	AutomationPaused AutomationStatus = "paused"
	AutomationDraft  AutomationStatus = "draft"
)

func (s AutomationStatus) Valid() bool {
	switch s {
	case AutomationActive, AutomationPaused, AutomationDraft:
		return true
	}
	return false
}

// ScheduleTrigger fires on a cron expression.
type ScheduleTrigger struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone,omitempty"`
}

// ConditionTrigger fires when a transaction field crosses a threshold.
type ConditionTrigger struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"` // gt, lt, eq
	Value    decimal.Decimal `json:"value"`
}

// WebhookTrigger fires when the named inbound hook is called.
type WebhookTrigger struct {
	Slug   string `json:"slug"`
	Secret string `json:"secret,omitempty"`
}

// Trigger is a tagged union keyed by the automation type: exactly the variant
// matching the type must be present.
type Trigger struct {
	Description string            `json:"description"`
	Schedule    *ScheduleTrigger  `json:"schedule,omitempty"`
	Condition   *ConditionTrigger `json:"condition,omitempty"`
	Webhook     *WebhookTrigger   `json:"webhook,omitempty"`
}

func (t Trigger) Validate(kind AutomationType) error {
	set := 0
	if t.Schedule != nil {
		set++
	}
	if t.Condition != nil {
		set++
	}
	if t.Webhook != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: trigger must carry exactly one variant", ErrValidation)
	}
	switch kind {
	case AutomationSchedule:
		if t.Schedule == nil || t.Schedule.Cron == "" {
			return fmt.Errorf("%w: schedule automation requires a cron trigger", ErrValidation)
		}
	case AutomationCondition:
		if t.Condition == nil || t.Condition.Field == "" || t.Condition.Operator == "" {
			return fmt.Errorf("%w: condition automation requires field and operator", ErrValidation)
		}
	case AutomationWebhook:
		if t.Webhook == nil || t.Webhook.Slug == "" {
			return fmt.Errorf("%w: webhook automation requires a hook slug", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown automation type %q", ErrValidation, kind)
	}
	return nil
}

type ActionKind string

const (
	ActionNotify   ActionKind = "notify"
	ActionTransfer ActionKind = "transfer"
	ActionHTTPCall ActionKind = "http_call"
)

type NotifyAction struct {
	Channel string `json:"channel"` // email, push
	Message string `json:"message"`
}

type TransferAction struct {
	FromConnectionID uuid.UUID       `json:"from_connection_id"`
	ToConnectionID   uuid.UUID       `json:"to_connection_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

type HTTPCallAction struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// Action is a tagged union keyed by its own kind field.
type Action struct {
	Description string          `json:"description"`
	Kind        ActionKind      `json:"kind"`
	Notify      *NotifyAction   `json:"notify,omitempty"`
	Transfer    *TransferAction `json:"transfer,omitempty"`
	HTTPCall    *HTTPCallAction `json:"http_call,omitempty"`
}

func (a Action) Validate() error {
	switch a.Kind {
	case ActionNotify:
		if a.Notify == nil || a.Notify.Channel == "" {
			return fmt.Errorf("%w: notify action requires a channel", ErrValidation)
		}
	case ActionTransfer:
		if a.Transfer == nil || a.Transfer.Amount.IsZero() {
			return fmt.Errorf("%w: transfer action requires a non-zero amount", ErrValidation)
		}
	case ActionHTTPCall:
		if a.HTTPCall == nil || a.HTTPCall.URL == "" {
			return fmt.Errorf("%w: http_call action requires a url", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action kind %q", ErrValidation, a.Kind)
	}
	return nil
}

// Automation is a user-defined rule. Trigger and action are stored as JSONB
// and validated against the tagged unions above on every write.
type Automation struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Type          AutomationType   `json:"type"`
	Status        AutomationStatus `json:"status"`
	Trigger       Trigger          `json:"trigger"`
	Action        Action           `json:"action"`
	LastExecution *time.Time       `json:"last_execution,omitempty"`
	NextExecution *time.Time       `json:"next_execution,omitempty"`
	Executions    int              `json:"executions"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type CreateAutomationParams struct {
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Type          AutomationType   `json:"type"`
	Status        AutomationStatus `json:"status,omitempty"`
	Trigger       Trigger          `json:"trigger"`
	Action        Action           `json:"action"`
	NextExecution *time.Time       `json:"next_execution,omitempty"`
}

type UpdateAutomationParams struct {
	Name          *string           `json:"name,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Status        *AutomationStatus `json:"status,omitempty"`
	Trigger       *Trigger          `json:"trigger,omitempty"`
	Action        *Action           `json:"action,omitempty"`
	NextExecution *time.Time        `json:"next_execution,omitempty"`
}

type AutomationFilter struct {
	Type   AutomationType
	Status AutomationStatus
	Limit  int
}

// MarshalTrigger and MarshalAction are the storage codecs for the jsonb columns.
func MarshalTrigger(t Trigger) ([]byte, error) { return json.Marshal(t) }
func MarshalAction(a Action) ([]byte, error)   { return json.Marshal(a) }
