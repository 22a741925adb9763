package entity

import "time"

// Kind identifies an entity type subject to lifecycle management
type Kind string

const (
	KindTechnicalDocument Kind = "technical_document"
	KindDraft             Kind = "draft"
	KindApproval          Kind = "approval"
	KindLibraryDocument   Kind = "library_document"
	KindPolicy            Kind = "policy"
	KindTrainingPlan      Kind = "training_plan"
	KindTrainingSession   Kind = "training_session"
	KindVacancy           Kind = "vacancy"
)

var validKinds = map[Kind]bool{
	KindTechnicalDocument: true,
	KindDraft:             true,
	KindApproval:          true,
	KindLibraryDocument:   true,
	KindPolicy:            true,
	KindTrainingPlan:      true,
	KindTrainingSession:   true,
	KindVacancy:           true,
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is one of the managed entity kinds
func (k Kind) IsValid() bool {
	return validKinds[k]
}

// WorkflowRecord is any entity subject to lifecycle management.
// The engine only interprets Kind, Status, OwnerID, ApproverID and a few
// well-known payload keys; everything else in Payload is opaque to it.
type WorkflowRecord struct {
	ID         int64          `json:"id"`
	Kind       Kind           `json:"kind"`
	Status     string         `json:"status"`
	OwnerID    string         `json:"owner_id"`
	ApproverID string         `json:"approver_id,omitempty"`
	Version    int64          `json:"version"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the record. Status is only ever written on
// copies produced by the workflow engine.
func (r *WorkflowRecord) Clone() *WorkflowRecord {
	payload := make(map[string]any, len(r.Payload))
	for k, v := range r.Payload {
		payload[k] = v
	}
	clone := *r
	clone.Payload = payload
	return &clone
}

// PayloadString retrieves a string value from the payload
func (r *WorkflowRecord) PayloadString(key string) string {
	if val, ok := r.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// PayloadBool retrieves a bool value from the payload
func (r *WorkflowRecord) PayloadBool(key string) bool {
	if val, ok := r.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// PayloadStrings retrieves a list of strings from the payload. JSON
// round-trips turn string slices into []any, so both shapes are accepted.
func (r *WorkflowRecord) PayloadStrings(key string) []string {
	val, ok := r.Payload[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
