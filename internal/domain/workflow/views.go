package workflow

import (
	"time"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// Views are read-only projections over a record collection, computed on
// demand. There is no cached state to invalidate; staleness is exactly the
// staleness of the input slice.
type Views struct {
	registry *Registry
}

// NewViews creates derived views over the given definitions
func NewViews(registry *Registry) *Views {
	return &Views{registry: registry}
}

// CountsByState returns record counts keyed by state, including zero counts
// for every declared state of the kind
func (v *Views) CountsByState(kind entity.Kind, records []*entity.WorkflowRecord) map[State]int {
	counts := make(map[State]int)
	for _, s := range v.registry.StatesFor(kind) {
		counts[s] = 0
	}
	for _, rec := range records {
		if rec.Kind == kind {
			counts[State(rec.Status)]++
		}
	}
	return counts
}

// PendingFor returns the records whose current state offers at least one
// transition the actor is permitted to fire. This is the same rule the guard
// applies, so role-gated buttons in the UI need no authorization logic of
// their own.
func (v *Views) PendingFor(actor entity.Actor, records []*entity.WorkflowRecord) []*entity.WorkflowRecord {
	var out []*entity.WorkflowRecord
	for _, rec := range records {
		def, ok := v.registry.Definition(rec.Kind)
		if !ok {
			continue
		}
		status := State(rec.Status)
		if def.IsTerminal(status) {
			continue
		}
		for _, t := range def.TransitionsFrom(status) {
			if t.permits(actor, rec) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// MineAndOverdue returns the actor's own non-terminal records whose advisory
// deadline has passed. Deadlines are informational dates, never enforced
// expirations.
func (v *Views) MineAndOverdue(actor entity.Actor, records []*entity.WorkflowRecord, now time.Time) []*entity.WorkflowRecord {
	var out []*entity.WorkflowRecord
	for _, rec := range records {
		if rec.OwnerID != actor.ID {
			continue
		}
		def, ok := v.registry.Definition(rec.Kind)
		if !ok || def.IsTerminal(State(rec.Status)) {
			continue
		}
		if due, ok := deadlineOf(rec); ok && due.Before(now) {
			out = append(out, rec)
		}
	}
	return out
}

// deadlineOf finds the first advisory deadline field set on a record
func deadlineOf(rec *entity.WorkflowRecord) (time.Time, bool) {
	for _, key := range []string{entity.FieldDueDate, entity.FieldDeadline, "application_deadline", "confirmation_deadline"} {
		raw := rec.PayloadString(key)
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if due, err := time.Parse(layout, raw); err == nil {
				return due, true
			}
		}
	}
	return time.Time{}, false
}
