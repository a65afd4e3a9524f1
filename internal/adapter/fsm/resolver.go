package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Compile-time checks: Resolver implements domain.ActionResolver for every
// entity that is driven by named actions over the API.
var (
	_ domain.ActionResolver[domain.TenantStatus]   = (*Resolver[domain.TenantStatus])(nil)
	_ domain.ActionResolver[domain.ClientStatus]   = (*Resolver[domain.ClientStatus])(nil)
	_ domain.ActionResolver[domain.ContractStatus] = (*Resolver[domain.ContractStatus])(nil)
)

// Resolver maps named actions to destination statuses using looplab/fsm.
// It creates a short-lived FSM instance per Resolve call, initialized with
// the entity's current status, because looplab/fsm tracks the current
// state internally.
type Resolver[S ~string] struct {
	kind   string
	events []loopfsm.EventDesc
}

// New builds a resolver from an entity's transition table.
func New[S ~string](table *domain.Table[S]) *Resolver[S] {
	return &Resolver[S]{kind: table.Kind(), events: buildEvents(table.Transitions())}
}

// buildEvents converts table transitions into looplab/fsm EventDesc format.
// Transitions with the same action and destination are consolidated into a
// single EventDesc with multiple sources (e.g. "deactivate" from "active"
// and "suspended" both go to "deactivated").
func buildEvents[S ~string](transitions []domain.Transition[S]) []loopfsm.EventDesc {
	type key struct {
		action string
		dst    string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range transitions {
		k := key{action: string(t.Action), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.action,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Resolve returns the status action leads to from current. It returns a
// domain.ActionError when the action is unknown or not valid from current.
func (r *Resolver[S]) Resolve(ctx context.Context, current S, action domain.Action) (S, error) {
	machine := loopfsm.NewFSM(string(current), r.events, nil)

	if err := machine.Event(ctx, string(action)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.ActionError{
				Kind:    r.kind,
				Action:  action,
				Current: string(current),
			}
		}
		return "", err
	}

	return S(machine.Current()), nil
}
