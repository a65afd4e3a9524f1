package domain

import (
	"strings"
	"time"
)

// ContractStatus represents the lifecycle state of a service contract.
type ContractStatus string

const (
	ContractDraft      ContractStatus = "draft"
	ContractActive     ContractStatus = "active"
	ContractSuspended  ContractStatus = "suspended"
	ContractTerminated ContractStatus = "terminated"
	ContractExpired    ContractStatus = "expired"
)

const (
	ActionActivate  Action = "activate"
	ActionResume    Action = "resume"
	ActionTerminate Action = "terminate"
	ActionExpire    Action = "expire"
)

const KindContract = "contract"

var ContractTable = NewTable(KindContract,
	[]ContractStatus{ContractDraft, ContractActive, ContractSuspended, ContractTerminated, ContractExpired},
	[]Transition[ContractStatus]{
		{Action: ActionActivate, Src: ContractDraft, Dst: ContractActive},
		{Action: ActionSuspend, Src: ContractActive, Dst: ContractSuspended},
		{Action: ActionResume, Src: ContractSuspended, Dst: ContractActive},
		{Action: ActionTerminate, Src: ContractActive, Dst: ContractTerminated},
		{Action: ActionTerminate, Src: ContractSuspended, Dst: ContractTerminated},
		{Action: ActionExpire, Src: ContractActive, Dst: ContractExpired},
	},
)

// Contract is a recurring maintenance agreement between the tenant and a client.
type Contract struct {
	lifecycle[ContractStatus]

	clientID   string
	reference  string
	startsOn   time.Time
	endsOn     time.Time
	monthlyFee int64
	createdAt  time.Time
}

// NewContract creates a contract in draft.
func NewContract(id, clientID, reference string, startsOn, endsOn time.Time, monthlyFee int64, now time.Time) (*Contract, error) {
	reference = strings.TrimSpace(reference)
	switch {
	case clientID == "":
		return nil, invariant(KindContract, "client id cannot be empty")
	case reference == "":
		return nil, invariant(KindContract, "reference cannot be empty")
	case !endsOn.After(startsOn):
		return nil, invariant(KindContract, "end date must be after start date")
	case monthlyFee < 0:
		return nil, invariant(KindContract, "monthly fee cannot be negative")
	}

	lc, err := newLifecycle(ContractTable, id, ContractDraft, now)
	if err != nil {
		return nil, err
	}
	c := &Contract{
		lifecycle:  lc,
		clientID:   clientID,
		reference:  reference,
		startsOn:   startsOn,
		endsOn:     endsOn,
		monthlyFee: monthlyFee,
		createdAt:  now,
	}
	c.record(EventCreated, now, map[string]string{"client_id": clientID, "reference": reference})
	return c, nil
}

func (c *Contract) ID() string           { return c.id }
func (c *Contract) ClientID() string     { return c.clientID }
func (c *Contract) Reference() string    { return c.reference }
func (c *Contract) StartsOn() time.Time  { return c.startsOn }
func (c *Contract) EndsOn() time.Time    { return c.endsOn }
func (c *Contract) MonthlyFee() int64    { return c.monthlyFee }
func (c *Contract) CreatedAt() time.Time { return c.createdAt }

// Terminate ends the contract early. A reason is mandatory.
func (c *Contract) Terminate(reason string, now time.Time) (Event, error) {
	if err := c.guard(ContractTerminated); err != nil {
		return Event{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Event{}, invariant(KindContract, "termination reason is required")
	}
	ev, err := c.TransitionTo(ContractTerminated, now)
	if err != nil {
		return Event{}, err
	}
	return c.annotate(ev, map[string]string{"reason": reason}), nil
}

// Expire closes a contract whose end date has been reached.
func (c *Contract) Expire(now time.Time) (Event, error) {
	if err := c.guard(ContractExpired); err != nil {
		return Event{}, err
	}
	if now.Before(c.endsOn) {
		return Event{}, invariant(KindContract, "contract %s runs until %s", c.id, c.endsOn.Format(time.DateOnly))
	}
	return c.TransitionTo(ContractExpired, now)
}

// ContractSnapshot is the flat representation of a contract.
type ContractSnapshot struct {
	ID         string
	ClientID   string
	Reference  string
	StartsOn   time.Time
	EndsOn     time.Time
	MonthlyFee int64
	Status     ContractStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Contract) Snapshot() ContractSnapshot {
	return ContractSnapshot{
		ID:         c.id,
		ClientID:   c.clientID,
		Reference:  c.reference,
		StartsOn:   c.startsOn,
		EndsOn:     c.endsOn,
		MonthlyFee: c.monthlyFee,
		Status:     c.status,
		CreatedAt:  c.createdAt,
		UpdatedAt:  c.changedAt,
	}
}

func RestoreContract(s ContractSnapshot) (*Contract, error) {
	lc, err := newLifecycle(ContractTable, s.ID, s.Status, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &Contract{
		lifecycle:  lc,
		clientID:   s.ClientID,
		reference:  s.Reference,
		startsOn:   s.StartsOn,
		endsOn:     s.EndsOn,
		monthlyFee: s.MonthlyFee,
		createdAt:  s.CreatedAt,
	}, nil
}
