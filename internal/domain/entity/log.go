package entity

import "time"

// TransitionLogEntry is the immutable audit trail of a fired transition.
// The log is the sole source of truth for who changed a record's status,
// when, and why; corrections are new transitions, never log edits.
type TransitionLogEntry struct {
	ID              int64          `json:"id"`
	RecordID        int64          `json:"record_id"`
	Kind            Kind           `json:"kind"`
	FromState       string         `json:"from_state"`
	ToState         string         `json:"to_state"`
	TransitionName  string         `json:"transition_name"`
	ActorID         string         `json:"actor_id"`
	Note            string         `json:"note,omitempty"`
	PayloadSnapshot map[string]any `json:"payload_snapshot,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}
