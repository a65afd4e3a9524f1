package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names a business operation that moves an entity between statuses.
type Action string

// Transition defines a valid state change: an action moves an entity from Src to Dst.
type Transition[S ~string] struct {
	Action Action
	Src    S
	Dst    S
}

// Table is the static transition table of one entity type. It maps every
// status of the enumeration to the set of statuses it may move to directly.
// A Table is built once at init and never mutated afterwards.
type Table[S ~string] struct {
	kind        string
	statuses    []S
	allowed     map[S][]S
	actions     map[[2]S]Action
	transitions []Transition[S]
}

// NewTable builds a table that is total over statuses. It panics when a
// transition references a status outside the enumeration or the same edge is
// declared twice, since both are programming errors in a package-level table.
func NewTable[S ~string](kind string, statuses []S, transitions []Transition[S]) *Table[S] {
	t := &Table[S]{
		kind:        kind,
		statuses:    append([]S(nil), statuses...),
		allowed:     make(map[S][]S, len(statuses)),
		actions:     make(map[[2]S]Action, len(transitions)),
		transitions: append([]Transition[S](nil), transitions...),
	}
	for _, s := range statuses {
		t.allowed[s] = []S{}
	}
	for _, tr := range transitions {
		if !t.Has(tr.Src) || !t.Has(tr.Dst) {
			panic(fmt.Sprintf("%s: transition %q references unknown status (%q -> %q)", kind, tr.Action, tr.Src, tr.Dst))
		}
		edge := [2]S{tr.Src, tr.Dst}
		if _, dup := t.actions[edge]; dup {
			panic(fmt.Sprintf("%s: duplicate edge %q -> %q", kind, tr.Src, tr.Dst))
		}
		t.actions[edge] = tr.Action
		t.allowed[tr.Src] = append(t.allowed[tr.Src], tr.Dst)
	}
	return t
}

// Kind returns the entity type the table governs (e.g. "invoice").
func (t *Table[S]) Kind() string { return t.kind }

// Statuses returns the enumeration in declaration order.
func (t *Table[S]) Statuses() []S { return append([]S(nil), t.statuses...) }

// Transitions returns the declared transitions in declaration order.
func (t *Table[S]) Transitions() []Transition[S] {
	return append([]Transition[S](nil), t.transitions...)
}

// Has reports whether s belongs to the enumeration.
func (t *Table[S]) Has(s S) bool {
	_, ok := t.allowed[s]
	return ok
}

// Allowed returns the statuses reachable from s in one step.
func (t *Table[S]) Allowed(s S) []S {
	return append([]S(nil), t.allowed[s]...)
}

// Allows reports whether from -> to is an edge of the table.
func (t *Table[S]) Allows(from, to S) bool {
	_, ok := t.actions[[2]S{from, to}]
	return ok
}

// IsTerminal reports whether s has no outgoing edges.
func (t *Table[S]) IsTerminal(s S) bool {
	return t.Has(s) && len(t.allowed[s]) == 0
}

func (t *Table[S]) action(from, to S) Action {
	return t.actions[[2]S{from, to}]
}

// lifecycle owns the status of an entity and the events recorded while it
// is mutated. Entities embed it so status can only change via TransitionTo.
type lifecycle[S ~string] struct {
	table     *Table[S]
	id        string
	status    S
	stored    S
	changedAt time.Time
	pending   []Event
}

func newLifecycle[S ~string](table *Table[S], id string, status S, at time.Time) (lifecycle[S], error) {
	if !table.Has(status) {
		return lifecycle[S]{}, &InvariantError{
			Kind:    table.kind,
			Message: fmt.Sprintf("unknown status %q", status),
		}
	}
	return lifecycle[S]{table: table, id: id, status: status, stored: status, changedAt: at}, nil
}

// Status returns the current status.
func (l *lifecycle[S]) Status() S { return l.status }

// StoredStatus returns the status the entity was created or restored with,
// or the one it had when last marked saved. Repositories write only if the
// stored row still holds it.
func (l *lifecycle[S]) StoredStatus() S { return l.stored }

// MarkSaved records the current status as the stored one.
func (l *lifecycle[S]) MarkSaved() { l.stored = l.status }

// UpdatedAt returns when the status last changed.
func (l *lifecycle[S]) UpdatedAt() time.Time { return l.changedAt }

// Allows reports whether the entity may move to target from its current status.
func (l *lifecycle[S]) Allows(target S) bool { return l.table.Allows(l.status, target) }

// guard returns the TransitionError TransitionTo would return for target, or nil.
func (l *lifecycle[S]) guard(target S) error {
	if l.table.Allows(l.status, target) {
		return nil
	}
	return &TransitionError{
		Kind:     l.table.kind,
		EntityID: l.id,
		From:     string(l.status),
		To:       string(target),
	}
}

// TransitionTo moves the entity to target if the table allows it, recording
// and returning exactly one event. On failure nothing changes.
func (l *lifecycle[S]) TransitionTo(target S, at time.Time) (Event, error) {
	from := l.status
	if err := l.guard(target); err != nil {
		return Event{}, err
	}

	ev := newEvent(l.table.kind, string(l.table.action(from, target)), l.id, at)
	ev.From = string(from)
	ev.To = string(target)

	l.status = target
	l.changedAt = at
	l.pending = append(l.pending, ev)
	return ev, nil
}

// ReleaseEvents returns the recorded events in order and empties the buffer.
func (l *lifecycle[S]) ReleaseEvents() []Event {
	out := l.pending
	l.pending = nil
	if out == nil {
		return []Event{}
	}
	return out
}

// record buffers a non-transition event such as creation.
func (l *lifecycle[S]) record(name string, at time.Time, payload map[string]string) Event {
	ev := newEvent(l.table.kind, name, l.id, at)
	ev.To = string(l.status)
	ev.Payload = payload
	l.pending = append(l.pending, ev)
	return ev
}

// annotate attaches payload to the most recently recorded event.
func (l *lifecycle[S]) annotate(ev Event, payload map[string]string) Event {
	if n := len(l.pending); n > 0 && l.pending[n-1].ID == ev.ID {
		l.pending[n-1].Payload = payload
	}
	ev.Payload = payload
	return ev
}

// Event is an immutable record of something that happened to an entity.
// Events are owned by the entity until released, then by the publisher.
type Event struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	TenantID   string            `json:"tenant_id,omitempty"`
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Payload    map[string]string `json:"payload,omitempty"`
}

func newEvent(kind, action, entityID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       kind + "." + action,
		EntityType: kind,
		EntityID:   entityID,
		OccurredAt: at,
	}
}

// EventCreated is the action suffix recorded when an entity is constructed.
const EventCreated = "created"
