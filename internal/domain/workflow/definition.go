package workflow

import (
	"fmt"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// Definition is the declarative state machine for one entity kind: its state
// set, initial state, terminal states and transition table. Pure data.
type Definition struct {
	Kind        entity.Kind
	States      []State
	Initial     State
	Terminal    []State
	Transitions []Transition
}

// HasState returns true if s is a declared state of this kind
func (d *Definition) HasState(s State) bool {
	for _, state := range d.States {
		if state == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if s is a terminal state (no outgoing transitions)
func (d *Definition) IsTerminal(s State) bool {
	for _, state := range d.Terminal {
		if state == s {
			return true
		}
	}
	return false
}

// Find returns the transition with the given name leaving from, or nil.
// The engine never performs jump transitions; from must match exactly.
func (d *Definition) Find(name string, from State) *Transition {
	for i := range d.Transitions {
		t := &d.Transitions[i]
		if t.Name == name && t.From == from {
			return t
		}
	}
	return nil
}

// TransitionsFrom returns all transitions leaving the given state
func (d *Definition) TransitionsFrom(from State) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.From == from {
			out = append(out, t)
		}
	}
	return out
}

// validate checks the definition's internal consistency. Violations wrap
// ErrMalformedDefinition and are fatal at startup.
func (d *Definition) validate() error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: unknown entity kind %q", ErrMalformedDefinition, d.Kind)
	}
	if len(d.States) == 0 {
		return fmt.Errorf("%w: kind %s declares no states", ErrMalformedDefinition, d.Kind)
	}
	if !d.HasState(d.Initial) {
		return fmt.Errorf("%w: kind %s initial state %s is not declared", ErrMalformedDefinition, d.Kind, d.Initial)
	}
	for _, s := range d.Terminal {
		if !d.HasState(s) {
			return fmt.Errorf("%w: kind %s terminal state %s is not declared", ErrMalformedDefinition, d.Kind, s)
		}
	}
	seen := make(map[string]bool, len(d.Transitions))
	for _, t := range d.Transitions {
		if t.Name == "" {
			return fmt.Errorf("%w: kind %s has an unnamed transition from %s", ErrMalformedDefinition, d.Kind, t.From)
		}
		if !d.HasState(t.From) {
			return fmt.Errorf("%w: kind %s transition %s leaves undeclared state %s", ErrMalformedDefinition, d.Kind, t.Name, t.From)
		}
		if !d.HasState(t.To) {
			return fmt.Errorf("%w: kind %s transition %s targets undeclared state %s", ErrMalformedDefinition, d.Kind, t.Name, t.To)
		}
		if d.IsTerminal(t.From) {
			return fmt.Errorf("%w: kind %s terminal state %s has outgoing transition %s", ErrMalformedDefinition, d.Kind, t.From, t.Name)
		}
		key := t.Name + "|" + string(t.From)
		if seen[key] {
			return fmt.Errorf("%w: kind %s duplicates transition %s from %s", ErrMalformedDefinition, d.Kind, t.Name, t.From)
		}
		seen[key] = true
	}
	return nil
}

// Registry is the exhaustive lookup of state machine definitions per entity
// kind. Built once at startup; read-only afterwards.
type Registry struct {
	defs map[entity.Kind]*Definition
}

// NewRegistry validates every definition and fails fast on the first
// malformed one
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[entity.Kind]*Definition, len(defs))}
	for _, def := range defs {
		if err := def.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.defs[def.Kind]; exists {
			return nil, fmt.Errorf("%w: duplicate definition for kind %s", ErrMalformedDefinition, def.Kind)
		}
		r.defs[def.Kind] = def
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for startup wiring and tests
func MustRegistry(defs ...*Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Definition returns the definition for a kind
func (r *Registry) Definition(kind entity.Kind) (*Definition, bool) {
	def, ok := r.defs[kind]
	return def, ok
}

// StatesFor returns the declared state set of a kind
func (r *Registry) StatesFor(kind entity.Kind) []State {
	if def, ok := r.defs[kind]; ok {
		return def.States
	}
	return nil
}

// InitialStateFor returns the state newly created records of a kind start in
func (r *Registry) InitialStateFor(kind entity.Kind) (State, error) {
	def, ok := r.defs[kind]
	if !ok {
		return "", fmt.Errorf("%w: no definition for kind %s", ErrMalformedDefinition, kind)
	}
	return def.Initial, nil
}

// TransitionsFor returns the full transition table of a kind
func (r *Registry) TransitionsFor(kind entity.Kind) []Transition {
	if def, ok := r.defs[kind]; ok {
		return def.Transitions
	}
	return nil
}

// Kinds returns the kinds with a registered definition
func (r *Registry) Kinds() []entity.Kind {
	kinds := make([]entity.Kind, 0, len(r.defs))
	for kind := range r.defs {
		kinds = append(kinds, kind)
	}
	return kinds
}
