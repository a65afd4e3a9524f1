package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrNotFound            = errors.New("not found")
	ErrContextAlreadyBound = errors.New("tenant context already bound")
	ErrNoTenantContext     = errors.New("no tenant context bound")
	ErrStorageRepointed    = errors.New("tenant storage reference cannot change")
)

// Stable machine-readable error codes for API consumers.
const (
	CodeTenantNotFound      = "tenant_not_found"
	CodeTenantInactive      = "tenant_inactive"
	CodeContextAlreadyBound = "context_already_bound"
	CodeNoTenantContext     = "no_tenant_context"
	CodeInvalidTransition   = "invalid_transition"
	CodeInvalidAction       = "invalid_action"
	CodeNotFound            = "not_found"
	CodeSubdomainConflict   = "subdomain_conflict"
	CodePaymentMismatch     = "payment_mismatch"
	CodeInvariantViolation  = "invariant_violation"
	CodeConcurrentUpdate    = "concurrent_update"
	CodeInternal            = "internal"
)

// TenantInactiveError is returned when a tenant exists but is not serving requests.
type TenantInactiveError struct {
	Subdomain string
	Status    TenantStatus
}

func (e *TenantInactiveError) Error() string {
	return fmt.Sprintf("tenant %q is not active (status %q)", e.Subdomain, e.Status)
}

// SubdomainConflictError is returned when a tenant subdomain is already in use.
type SubdomainConflictError struct {
	Subdomain string
}

func (e *SubdomainConflictError) Error() string {
	return fmt.Sprintf("subdomain %q is already in use", e.Subdomain)
}

// TransitionError is returned when a status change is not in the entity's table.
type TransitionError struct {
	Kind     string
	EntityID string
	From     string
	To       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: transition %q -> %q is not allowed", e.Kind, e.EntityID, e.From, e.To)
}

// ActionError is returned when a named action has no edge from the current status.
// EntityID is empty when the action was checked without an entity.
type ActionError struct {
	Kind     string
	EntityID string
	Action   Action
	Current  string
}

func (e *ActionError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("%s: action %q is not valid from state %q", e.Kind, e.Action, e.Current)
	}
	return fmt.Sprintf("%s %s: action %q is not valid from state %q", e.Kind, e.EntityID, e.Action, e.Current)
}

// ConflictError is returned by a save when the stored status is no longer
// the one the entity was loaded with.
type ConflictError struct {
	Kind     string
	EntityID string
	Expected string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: modified concurrently (stored status is no longer %q)", e.Kind, e.EntityID, e.Expected)
}

// NotFoundError identifies a missing tenant-scoped entity. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PaymentMismatchError is returned when a payment does not settle the invoice exactly.
type PaymentMismatchError struct {
	InvoiceID string
	Expected  int64
	Got       int64
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("invoice %s: payment of %d does not match outstanding %d", e.InvoiceID, e.Got, e.Expected)
}

// InvariantError reports a violated business rule that is not a transition.
type InvariantError struct {
	Kind    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invariant(kind, format string, args ...any) error {
	return &InvariantError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode maps an error to its stable code. Unknown errors map to CodeInternal.
func ErrorCode(err error) string {
	var (
		inactive *TenantInactiveError
		conflict *SubdomainConflictError
		trErr    *TransitionError
		actErr   *ActionError
		payErr   *PaymentMismatchError
		invErr   *InvariantError
		conflErr *ConflictError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTenantNotFound):
		return CodeTenantNotFound
	case errors.As(err, &inactive):
		return CodeTenantInactive
	case errors.Is(err, ErrContextAlreadyBound):
		return CodeContextAlreadyBound
	case errors.Is(err, ErrNoTenantContext):
		return CodeNoTenantContext
	case errors.As(err, &trErr):
		return CodeInvalidTransition
	case errors.As(err, &actErr):
		return CodeInvalidAction
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.As(err, &conflict):
		return CodeSubdomainConflict
	case errors.As(err, &payErr):
		return CodePaymentMismatch
	case errors.As(err, &invErr):
		return CodeInvariantViolation
	case errors.As(err, &conflErr):
		return CodeConcurrentUpdate
	default:
		return CodeInternal
	}
}
