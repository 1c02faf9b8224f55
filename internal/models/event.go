package models

import "time"

type AccountEventType string

const (
	EventUserUpserted      AccountEventType = "user.upserted"
	EventUserStatusChanged AccountEventType = "user.status_changed"
	EventPasswordReset     AccountEventType = "user.password_reset"
)

// AccountEvent is published whenever a user record changes in a way that
// affects authentication.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     int32            `json:"user_id"`
	Active     *bool            `json:"active,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
