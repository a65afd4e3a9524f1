package domain

import (
	"strings"
	"time"
)

// ClientStatus represents the lifecycle state of a customer of a tenant.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientArchived ClientStatus = "archived"
)

const ActionArchive Action = "archive"

const KindClient = "client"

// ClientTable is the transition table for clients. Archiving requires the
// client to be inactive first.
var ClientTable = NewTable(KindClient,
	[]ClientStatus{ClientActive, ClientInactive, ClientArchived},
	[]Transition[ClientStatus]{
		{Action: ActionDeactivate, Src: ClientActive, Dst: ClientInactive},
		{Action: ActionReactivate, Src: ClientInactive, Dst: ClientActive},
		{Action: ActionArchive, Src: ClientInactive, Dst: ClientArchived},
	},
)

// Client is a customer the tenant provides field services to.
type Client struct {
	lifecycle[ClientStatus]

	name      string
	taxID     string
	email     string
	createdAt time.Time
}

// NewClient creates an active client.
func NewClient(id, name, taxID, email string, now time.Time) (*Client, error) {
	name = strings.TrimSpace(name)
	taxID = strings.ToUpper(strings.TrimSpace(taxID))
	if name == "" {
		return nil, invariant(KindClient, "name cannot be empty")
	}
	if taxID == "" {
		return nil, invariant(KindClient, "tax id cannot be empty")
	}

	lc, err := newLifecycle(ClientTable, id, ClientActive, now)
	if err != nil {
		return nil, err
	}
	c := &Client{lifecycle: lc, name: name, taxID: taxID, email: email, createdAt: now}
	c.record(EventCreated, now, map[string]string{"tax_id": taxID})
	return c, nil
}

func (c *Client) ID() string           { return c.id }
func (c *Client) Name() string         { return c.name }
func (c *Client) TaxID() string        { return c.taxID }
func (c *Client) Email() string        { return c.email }
func (c *Client) CreatedAt() time.Time { return c.createdAt }

// ClientSnapshot is the flat representation of a client.
type ClientSnapshot struct {
	ID        string
	Name      string
	TaxID     string
	Email     string
	Status    ClientStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) Snapshot() ClientSnapshot {
	return ClientSnapshot{
		ID:        c.id,
		Name:      c.name,
		TaxID:     c.taxID,
		Email:     c.email,
		Status:    c.status,
		CreatedAt: c.createdAt,
		UpdatedAt: c.changedAt,
	}
}

// RestoreClient rebuilds a client from storage without recording events.
func RestoreClient(s ClientSnapshot) (*Client, error) {
	lc, err := newLifecycle(ClientTable, s.ID, s.Status, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &Client{lifecycle: lc, name: s.Name, taxID: s.TaxID, email: s.Email, createdAt: s.CreatedAt}, nil
}
