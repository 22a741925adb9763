package workflow

import (
	"fmt"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// Guard decides whether an actor may fire a named transition on a record.
// It is the single source of truth for transition authorization; the UI only
// renders whatever the pending views derive from it.
type Guard struct {
	registry *Registry
}

// NewGuard creates a guard over the given definitions
func NewGuard(registry *Registry) *Guard {
	return &Guard{registry: registry}
}

// Check evaluates, in order: terminal state, transition existence from the
// record's current state, role membership (with owner bypass), required
// payload fields, and required record flags. The first failing check
// short-circuits; the guard never partially applies.
func (g *Guard) Check(rec *entity.WorkflowRecord, name string, actor entity.Actor, payload map[string]any) (*Transition, error) {
	def, ok := g.registry.Definition(rec.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: no definition for kind %s", ErrInvalidTransition, rec.Kind)
	}

	status := State(rec.Status)
	if !def.HasState(status) {
		return nil, fmt.Errorf("%w: record %d is in undeclared state %s", ErrInvalidTransition, rec.ID, status)
	}
	if def.IsTerminal(status) {
		return nil, fmt.Errorf("%w: record %d is in terminal state %s", ErrInvalidTransition, rec.ID, status)
	}

	t := def.Find(name, status)
	if t == nil {
		return nil, fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, name, status)
	}

	if !t.permits(actor, rec) {
		return nil, &Denial{
			Reason:     DenialWrongRole,
			Transition: name,
			Message:    fmt.Sprintf("role %s may not fire %s on a %s", actor.Role, name, rec.Kind),
		}
	}

	for _, field := range t.RequiredFields {
		if !fieldPresent(payload, field) {
			return nil, &Denial{
				Reason:     DenialMissingField,
				Transition: name,
				Message:    fmt.Sprintf("required field %q is missing or empty", field),
			}
		}
	}

	for _, flag := range t.RequiredFlags {
		if !rec.PayloadBool(flag) {
			return nil, &Denial{
				Reason:     DenialConditionFailed,
				Transition: name,
				Message:    fmt.Sprintf("%s requires %s to be set first", name, flag),
			}
		}
	}

	return t, nil
}

// Available returns the transitions the actor may fire on the record from
// its current state. Required payload fields are not considered since they
// arrive with the firing call; required flags are.
func (g *Guard) Available(rec *entity.WorkflowRecord, actor entity.Actor) []Transition {
	def, ok := g.registry.Definition(rec.Kind)
	if !ok {
		return nil
	}
	status := State(rec.Status)
	if !def.HasState(status) || def.IsTerminal(status) {
		return nil
	}

	var out []Transition
	for _, t := range def.TransitionsFrom(status) {
		if !t.permits(actor, rec) {
			continue
		}
		blocked := false
		for _, flag := range t.RequiredFlags {
			if !rec.PayloadBool(flag) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, t)
		}
	}
	return out
}

// fieldPresent reports whether a payload value exists and is non-empty
func fieldPresent(payload map[string]any, key string) bool {
	val, ok := payload[key]
	if !ok || val == nil {
		return false
	}
	switch v := val.(type) {
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}
