package domain

import (
	"encoding/json"
	"time"
)

// Notification per-user notification record (maps to the notifications table).
// The push transport itself is best-effort; the record is what screens list
// and what the transfer coordinator deletes on completion.
type Notification struct {
	NotificationID string          `json:"notification_id" db:"notification_id"`
	UID            string          `json:"uid" db:"uid"`
	Title          string          `json:"title" db:"title"`
	Body           string          `json:"body" db:"body"`
	Data           json.RawMessage `json:"data,omitempty" db:"data"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
