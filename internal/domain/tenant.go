package domain

import (
	"regexp"
	"time"
)

// TenantStatus represents the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantProvisioning TenantStatus = "provisioning"
	TenantActive       TenantStatus = "active"
	TenantSuspended    TenantStatus = "suspended"
	TenantDeactivated  TenantStatus = "deactivated"
)

const (
	ActionProvision  Action = "provision"
	ActionSuspend    Action = "suspend"
	ActionReactivate Action = "reactivate"
	ActionDeactivate Action = "deactivate"
)

// KindTenant is the entity type name used in events and errors.
const KindTenant = "tenant"

// TenantTable defines all valid state changes in the tenant lifecycle.
// Tenants are never deleted: deactivated is the terminal soft-delete state.
var TenantTable = NewTable(KindTenant,
	[]TenantStatus{TenantProvisioning, TenantActive, TenantSuspended, TenantDeactivated},
	[]Transition[TenantStatus]{
		{Action: ActionProvision, Src: TenantProvisioning, Dst: TenantActive},
		{Action: ActionSuspend, Src: TenantActive, Dst: TenantSuspended},
		{Action: ActionReactivate, Src: TenantSuspended, Dst: TenantActive},
		{Action: ActionDeactivate, Src: TenantActive, Dst: TenantDeactivated},
		{Action: ActionDeactivate, Src: TenantSuspended, Dst: TenantDeactivated},
	},
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSubdomain reports whether s can be used as a tenant subdomain label.
func ValidSubdomain(s string) bool {
	return len(s) <= 63 && subdomainPattern.MatchString(s)
}

// Tenant is an isolated customer account with its own data store.
type Tenant struct {
	lifecycle[TenantStatus]

	name       string
	subdomain  string
	storageRef string
	plan       string
	createdAt  time.Time
}

// NewTenant creates a tenant in the initial "provisioning" state.
func NewTenant(id, name, subdomain, storageRef, plan string, now time.Time) (*Tenant, error) {
	if name == "" {
		return nil, invariant(KindTenant, "name cannot be empty")
	}
	if !ValidSubdomain(subdomain) {
		return nil, invariant(KindTenant, "invalid subdomain %q", subdomain)
	}
	if storageRef == "" {
		return nil, invariant(KindTenant, "storage reference cannot be empty")
	}

	lc, err := newLifecycle(TenantTable, id, TenantProvisioning, now)
	if err != nil {
		return nil, err
	}
	t := &Tenant{
		lifecycle:  lc,
		name:       name,
		subdomain:  subdomain,
		storageRef: storageRef,
		plan:       plan,
		createdAt:  now,
	}
	t.record(EventCreated, now, map[string]string{"subdomain": subdomain, "plan": plan})
	return t, nil
}

func (t *Tenant) ID() string         { return t.id }
func (t *Tenant) Name() string       { return t.name }
func (t *Tenant) Subdomain() string  { return t.subdomain }
func (t *Tenant) StorageRef() string { return t.storageRef }
func (t *Tenant) Plan() string       { return t.plan }
func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

// IsActive reports whether the tenant may serve requests.
func (t *Tenant) IsActive() bool { return t.status == TenantActive }

// TenantSnapshot is the flat persisted and wire representation of a tenant.
type TenantSnapshot struct {
	ID         string
	Name       string
	Subdomain  string
	StorageRef string
	Plan       string
	Status     TenantStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Snapshot returns a copy of the tenant's state.
func (t *Tenant) Snapshot() TenantSnapshot {
	return TenantSnapshot{
		ID:         t.id,
		Name:       t.name,
		Subdomain:  t.subdomain,
		StorageRef: t.storageRef,
		Plan:       t.plan,
		Status:     t.status,
		CreatedAt:  t.createdAt,
		UpdatedAt:  t.changedAt,
	}
}

// RestoreTenant rebuilds a tenant from storage without recording events.
func RestoreTenant(s TenantSnapshot) (*Tenant, error) {
	lc, err := newLifecycle(TenantTable, s.ID, s.Status, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &Tenant{
		lifecycle:  lc,
		name:       s.Name,
		subdomain:  s.Subdomain,
		storageRef: s.StorageRef,
		plan:       s.Plan,
		createdAt:  s.CreatedAt,
	}, nil
}
