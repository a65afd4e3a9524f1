package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

// Services are the tenant-scoped use cases served under the tenant's host.
type Services struct {
	Clients   *app.ClientService
	Contracts *app.ContractService
	Invoices  *app.InvoiceService
}

type CurrentTenantOutput struct {
	Body TenantResponse
}

// RegisterScoped adds the routes that act on the tenant owning the request
// host. Each operation runs inside a tenant binding entered by sw.
func RegisterScoped(api huma.API, sw *tenancy.Switch, svc Services) {
	scoped := huma.Middlewares{tenantScope(sw)}

	huma.Register(api, huma.Operation{
		OperationID: "current-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenant",
		Summary:     "Describe the tenant serving this host",
		Tags:        []string{"Tenant"},
		Middlewares: scoped,
	}, func(ctx context.Context, _ *struct{}) (*CurrentTenantOutput, error) {
		b, err := tenancy.From(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CurrentTenantOutput{Body: toTenantResponse(b.Tenant())}, nil
	})

	registerClients(api, scoped, svc.Clients)
	registerContracts(api, scoped, svc.Contracts)
	registerInvoices(api, scoped, svc.Invoices)
}
