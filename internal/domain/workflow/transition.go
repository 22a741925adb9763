package workflow

import "github.com/imcpnet/intranet-workflow/internal/domain/entity"

// Transition declares one guarded edge of an entity kind's state machine.
// Pure data; evaluation lives in Guard and Engine.
type Transition struct {
	// Name is the action fired by callers, e.g. "submit_for_review"
	Name string

	// From and To are members of the owning definition's state set
	From State
	To   State

	// AllowedRoles restricts who may fire the transition. Empty without
	// AllowOwner means the transition is open to any actor (e.g. applying
	// to a vacancy); empty with AllowOwner means owner-only.
	AllowedRoles []entity.Role

	// AllowOwner permits the record's owner regardless of role, so authors
	// can always submit or withdraw their own work
	AllowOwner bool

	// RequiredFields are payload keys that must be supplied non-empty for
	// the transition to fire (e.g. reject requires a reason)
	RequiredFields []string

	// RequiredFlags are record payload booleans that must already be true
	// (e.g. publish a vacancy only after budget_approved)
	RequiredFlags []string

	// Effects are the ordered side-effect descriptors emitted on success
	Effects []Effect
}

// permits reports whether the actor may fire this transition on the record,
// considering role membership and the owner bypass
func (t *Transition) permits(actor entity.Actor, rec *entity.WorkflowRecord) bool {
	if t.AllowOwner && actor.ID != "" && actor.ID == rec.OwnerID {
		return true
	}
	if len(t.AllowedRoles) == 0 {
		return !t.AllowOwner
	}
	for _, role := range t.AllowedRoles {
		if role == actor.Role {
			return true
		}
	}
	return false
}
