package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/domain"
)

const timestampFormat = time.RFC3339

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	Name      string `json:"name" doc:"Display name"`
	Subdomain string `json:"subdomain" doc:"Routing label under the base domain"`
	Status    string `json:"status" doc:"Lifecycle state"`
	Plan      string `json:"plan" doc:"Subscription plan"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt string `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toTenantResponse(s domain.TenantSnapshot) TenantResponse {
	return TenantResponse{
		ID:        s.ID,
		Name:      s.Name,
		Subdomain: s.Subdomain,
		Status:    string(s.Status),
		Plan:      s.Plan,
		CreatedAt: s.CreatedAt.UTC().Format(timestampFormat),
		UpdatedAt: s.UpdatedAt.UTC().Format(timestampFormat),
	}
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name      string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Subdomain string `json:"subdomain" minLength:"1" maxLength:"63" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"Routing label (lowercase, hyphens)"`
		Plan      string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
	}
}

type TenantOutput struct {
	Body TenantResponse
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status string `query:"status" required:"false" enum:"provisioning,active,suspended,deactivated" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

// --- Transition ---

type TenantActionInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Action string `json:"action" doc:"Lifecycle action to apply" enum:"provision,suspend,reactivate,deactivate"`
	}
}

// RegisterTenants adds the tenant administration routes. They operate on the
// catalog and are not host-scoped.
func RegisterTenants(api huma.API, svc *app.TenantService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          "/api/v1/tenants",
		Summary:       "Create and provision a tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTenantInput) (*TenantOutput, error) {
		tenant, err := svc.Create(ctx, input.Body.Name, input.Body.Subdomain, input.Body.Plan)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant.Snapshot())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*TenantOutput, error) {
		tenant, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant.Snapshot())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.TenantStatus(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t.Snapshot())
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/actions",
		Summary:     "Apply a lifecycle action",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantActionInput) (*TenantOutput, error) {
		tenant, err := svc.Transition(ctx, input.ID, domain.Action(input.Body.Action))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant.Snapshot())}, nil
	})
}
