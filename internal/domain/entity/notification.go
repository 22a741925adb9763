package entity

import "time"

// Notification is a queued message to a user about a workflow transition.
// Delivery failure never fails the transition that produced it.
type Notification struct {
	ID          int64      `json:"id"`
	RecordID    int64      `json:"record_id"`
	Kind        Kind       `json:"kind"`
	RecipientID string     `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}
