package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/serviq/internal/adapter/fsm"
	"github.com/neomorfeo/serviq/internal/domain"
)

func TestResolver_AllTenantTransitions(t *testing.T) {
	r := adapter.New(domain.TenantTable)
	ctx := context.Background()

	for _, tr := range domain.TenantTable.Transitions() {
		dst, err := r.Resolve(ctx, tr.Src, tr.Action)
		if err != nil {
			t.Errorf("Resolve(%q, %q) unexpected error: %v", tr.Src, tr.Action, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tr.Src, tr.Action, dst, tr.Dst)
		}
	}
}

func TestResolver_AgreesWithTable(t *testing.T) {
	r := adapter.New(domain.ContractTable)
	ctx := context.Background()
	actions := []domain.Action{
		domain.ActionActivate, domain.ActionSuspend, domain.ActionResume,
		domain.ActionTerminate, domain.ActionExpire,
	}

	for _, from := range domain.ContractTable.Statuses() {
		for _, action := range actions {
			dst, err := r.Resolve(ctx, from, action)
			if err != nil {
				continue
			}
			if !domain.ContractTable.Allows(from, dst) {
				t.Errorf("Resolve(%q, %q) = %q, which the table forbids", from, action, dst)
			}
		}
	}
}

func TestResolver_InvalidAction(t *testing.T) {
	r := adapter.New(domain.TenantTable)
	ctx := context.Background()

	// Can't suspend a tenant that is still provisioning.
	_, err := r.Resolve(ctx, domain.TenantProvisioning, domain.ActionSuspend)
	var actErr *domain.ActionError
	if !errors.As(err, &actErr) {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if actErr.Action != domain.ActionSuspend {
		t.Errorf("action = %q, want %q", actErr.Action, domain.ActionSuspend)
	}
	if actErr.Current != string(domain.TenantProvisioning) {
		t.Errorf("current = %q, want %q", actErr.Current, domain.TenantProvisioning)
	}
	if actErr.Kind != domain.KindTenant {
		t.Errorf("kind = %q, want %q", actErr.Kind, domain.KindTenant)
	}
}

func TestResolver_UnknownAction(t *testing.T) {
	r := adapter.New(domain.ClientTable)

	_, err := r.Resolve(context.Background(), domain.ClientActive, "explode")
	var actErr *domain.ActionError
	if !errors.As(err, &actErr) {
		t.Fatalf("expected ActionError, got %v", err)
	}
}

func TestResolver_TerminalStatus(t *testing.T) {
	r := adapter.New(domain.ClientTable)

	for _, action := range []domain.Action{domain.ActionReactivate, domain.ActionDeactivate, domain.ActionArchive} {
		if _, err := r.Resolve(context.Background(), domain.ClientArchived, action); err == nil {
			t.Errorf("Resolve(archived, %q) should fail", action)
		}
	}
}

func TestResolver_FullTenantLifecycle(t *testing.T) {
	r := adapter.New(domain.TenantTable)
	ctx := context.Background()

	steps := []struct {
		from   domain.TenantStatus
		action domain.Action
		want   domain.TenantStatus
	}{
		{domain.TenantProvisioning, domain.ActionProvision, domain.TenantActive},
		{domain.TenantActive, domain.ActionSuspend, domain.TenantSuspended},
		{domain.TenantSuspended, domain.ActionReactivate, domain.TenantActive},
		{domain.TenantActive, domain.ActionDeactivate, domain.TenantDeactivated},
	}

	for _, step := range steps {
		got, err := r.Resolve(ctx, step.from, step.action)
		if err != nil {
			t.Fatalf("Resolve(%q, %q) error: %v", step.from, step.action, err)
		}
		if got != step.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", step.from, step.action, got, step.want)
		}
	}
}

func TestResolver_DeactivateFromSuspended(t *testing.T) {
	r := adapter.New(domain.TenantTable)

	// Deactivate is valid from both "active" and "suspended".
	got, err := r.Resolve(context.Background(), domain.TenantSuspended, domain.ActionDeactivate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.TenantDeactivated {
		t.Errorf("got %q, want %q", got, domain.TenantDeactivated)
	}
}
