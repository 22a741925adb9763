package workflow

// EffectKind identifies a side-effect instruction emitted by the engine.
// Effects describe work for collaborators; the engine never performs them.
type EffectKind string

const (
	// EffectPersist instructs the caller to save the new record version
	EffectPersist EffectKind = "persist"

	// EffectAssignUsers is declared on transitions and expanded by the
	// engine into one EffectCreateAttendance per not-yet-assigned user
	EffectAssignUsers EffectKind = "assign_users"

	// EffectCreateAttendance creates one attendance child record
	EffectCreateAttendance EffectKind = "create_attendance"

	// EffectCreateApplication creates one vacancy application child record
	EffectCreateApplication EffectKind = "create_application"

	// EffectSetFlag marks a boolean payload field true on the new record.
	// Applied by the engine itself, never emitted.
	EffectSetFlag EffectKind = "set_flag"

	// EffectSetField copies a supplied payload value onto the new record.
	// Applied by the engine itself, never emitted.
	EffectSetField EffectKind = "set_field"

	// EffectNotify queues a notification for an audience group
	EffectNotify EffectKind = "notify"
)

// Effect is an ordered side-effect descriptor. Kind selects the collaborator
// action; Params carries its arguments.
type Effect struct {
	Kind   EffectKind     `json:"kind"`
	Params map[string]any `json:"params,omitempty"`
}

// ParamString retrieves a string parameter from the effect
func (e Effect) ParamString(key string) string {
	if val, ok := e.Params[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// ParamInt retrieves an int64 parameter from the effect
func (e Effect) ParamInt(key string) int64 {
	if val, ok := e.Params[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// SetFlag declares that firing the transition marks a boolean record field
// true (e.g. budget_approved after approve_budget).
func SetFlag(field string) Effect {
	return Effect{Kind: EffectSetFlag, Params: map[string]any{"field": field}}
}

// SetField declares that firing the transition copies the supplied payload
// key onto the record under field, when present.
func SetField(field, from string) Effect {
	return Effect{Kind: EffectSetField, Params: map[string]any{"field": field, "from": from}}
}

// AssignUsers declares per-user attendance fan-out driven by the payload's
// user id list.
func AssignUsers() Effect {
	return Effect{Kind: EffectAssignUsers}
}

// CreateApplication declares that the firing actor applies to the record
func CreateApplication() Effect {
	return Effect{Kind: EffectCreateApplication}
}

// Notify declares a notification to an audience group using a message template
func Notify(audience, template string) Effect {
	return Effect{Kind: EffectNotify, Params: map[string]any{"audience": audience, "template": template}}
}
