package workflow

import (
	"fmt"
	"time"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// Clock supplies the engine's notion of now
type Clock func() time.Time

// Engine computes workflow transitions. Fire is a pure function of its
// inputs plus the injected clock: it performs no I/O and mutates nothing it
// is given; persistence and notification happen when the caller applies the
// returned effects.
type Engine struct {
	registry *Registry
	guard    *Guard
	now      Clock
}

// Option configures the engine
type Option func(*Engine)

// WithClock sets the engine's clock, used by tests for deterministic timestamps
func WithClock(now Clock) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a workflow engine over the given definitions
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		guard:    NewGuard(registry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the engine's definitions for derived views and wiring
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Guard exposes the engine's guard for callers that only need authorization
func (e *Engine) Guard() *Guard {
	return e.guard
}

// Result is everything a successful Fire produces: the new record version,
// the audit log entry, and the ordered side-effect instructions.
type Result struct {
	Record  *entity.WorkflowRecord
	Entry   *entity.TransitionLogEntry
	Effects []Effect
}

// NewRecord creates a record in its kind's initial state. Records never
// receive a status any other way; the engine is the only writer of status.
func (e *Engine) NewRecord(kind entity.Kind, ownerID string, payload map[string]any) (*entity.WorkflowRecord, error) {
	initial, err := e.registry.InitialStateFor(kind)
	if err != nil {
		return nil, err
	}
	now := e.now()
	rec := &entity.WorkflowRecord{
		Kind:      kind,
		Status:    string(initial),
		OwnerID:   ownerID,
		Version:   1,
		Payload:   make(map[string]any, len(payload)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range payload {
		rec.Payload[k] = v
	}
	return rec, nil
}

// Fire validates the transition through the guard, computes the next record
// version, builds the log entry and gathers the side-effect instructions.
// On guard failure it returns the error unchanged with nothing mutated.
func (e *Engine) Fire(rec *entity.WorkflowRecord, name string, actor entity.Actor, payload map[string]any) (*Result, error) {
	t, err := e.guard.Check(rec, name, actor, payload)
	if err != nil {
		return nil, err
	}

	now := e.now()
	next := rec.Clone()
	next.Status = string(t.To)
	next.UpdatedAt = now
	next.Version = rec.Version + 1

	// Supplied fields become part of the record payload, except assignment
	// targets, which are interpreted rather than stored.
	for k, v := range payload {
		if k == entity.FieldUserIDs {
			continue
		}
		next.Payload[k] = v
	}

	effects := make([]Effect, 0, len(t.Effects)+1)
	effects = append(effects, Effect{Kind: EffectPersist})
	for _, ef := range t.Effects {
		switch ef.Kind {
		case EffectSetFlag:
			next.Payload[ef.ParamString("field")] = true
		case EffectSetField:
			if val, ok := payload[ef.ParamString("from")]; ok && val != nil && val != "" {
				next.Payload[ef.ParamString("field")] = val
			}
		case EffectAssignUsers:
			effects = append(effects, e.expandAssignments(rec, next, actor, payload)...)
		case EffectCreateApplication:
			if app := e.expandApplication(rec, next, actor); app != nil {
				effects = append(effects, *app)
			}
		case EffectNotify:
			effects = append(effects, notifyFor(ef, rec, t))
		default:
			effects = append(effects, ef)
		}
	}

	entry := &entity.TransitionLogEntry{
		RecordID:        rec.ID,
		Kind:            rec.Kind,
		FromState:       rec.Status,
		ToState:         string(t.To),
		TransitionName:  t.Name,
		ActorID:         actor.ID,
		Note:            noteFrom(payload),
		PayloadSnapshot: snapshot(payload),
		Timestamp:       now,
	}

	return &Result{Record: next, Entry: entry, Effects: effects}, nil
}

// expandAssignments turns an assign_users effect into one create_attendance
// effect per user not already assigned to the record. Firing the same
// assignment twice therefore creates no duplicates: the new record version
// carries the grown participant list.
func (e *Engine) expandAssignments(prev, next *entity.WorkflowRecord, actor entity.Actor, payload map[string]any) []Effect {
	existing := make(map[string]bool)
	participants := prev.PayloadStrings(entity.FieldParticipants)
	for _, id := range participants {
		existing[id] = true
	}

	var out []Effect
	for _, uid := range payloadStrings(payload, entity.FieldUserIDs) {
		if uid == "" || existing[uid] {
			continue
		}
		existing[uid] = true
		participants = append(participants, uid)
		out = append(out, Effect{
			Kind: EffectCreateAttendance,
			Params: map[string]any{
				"session_id": prev.ID,
				"user_id":    uid,
				"invited_by": actor.ID,
			},
		})
	}
	next.Payload[entity.FieldParticipants] = participants
	return out
}

// expandApplication creates one application for the firing actor, unless
// they already applied to this record
func (e *Engine) expandApplication(prev, next *entity.WorkflowRecord, actor entity.Actor) *Effect {
	applicants := prev.PayloadStrings("applicants")
	for _, id := range applicants {
		if id == actor.ID {
			return nil
		}
	}
	next.Payload["applicants"] = append(applicants, actor.ID)
	return &Effect{
		Kind: EffectCreateApplication,
		Params: map[string]any{
			"vacancy_id":   prev.ID,
			"applicant_id": actor.ID,
		},
	}
}

// notifyFor parameterizes a declared notify effect with the record context
func notifyFor(ef Effect, rec *entity.WorkflowRecord, t *Transition) Effect {
	params := map[string]any{
		"audience":   ef.ParamString("audience"),
		"template":   ef.ParamString("template"),
		"record_id":  rec.ID,
		"kind":       string(rec.Kind),
		"owner_id":   rec.OwnerID,
		"transition": t.Name,
	}
	return Effect{Kind: EffectNotify, Params: params}
}

// noteFrom extracts the human explanation supplied with a transition
func noteFrom(payload map[string]any) string {
	for _, key := range []string{entity.FieldNote, entity.FieldReason, entity.FieldObservations} {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// snapshot copies the supplied payload for the immutable log entry
func snapshot(payload map[string]any) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

// payloadStrings reads a string list from a transition payload, accepting
// both []string and the []any shape produced by JSON decoding
func payloadStrings(payload map[string]any, key string) []string {
	val, ok := payload[key]
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
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	}
	return nil
}
