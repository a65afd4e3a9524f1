package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/domain"
)

type ClientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TaxID     string `json:"tax_id" doc:"Fiscal identifier"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status" doc:"Lifecycle state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toClientResponse(c *domain.Client) ClientResponse {
	s := c.Snapshot()
	return ClientResponse{
		ID:        s.ID,
		Name:      s.Name,
		TaxID:     s.TaxID,
		Email:     s.Email,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt.UTC().Format(timestampFormat),
		UpdatedAt: s.UpdatedAt.UTC().Format(timestampFormat),
	}
}

type CreateClientInput struct {
	Body struct {
		Name  string `json:"name" minLength:"1" maxLength:"255"`
		TaxID string `json:"tax_id" minLength:"1" maxLength:"32"`
		Email string `json:"email,omitempty" format:"email"`
	}
}

type ClientOutput struct {
	Body ClientResponse
}

type GetByIDInput struct {
	ID string `path:"id"`
}

type ListClientsInput struct {
	Limit  int `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500"`
	Offset int `query:"offset" required:"false" default:"0" minimum:"0"`
}

type ListClientsOutput struct {
	Body []ClientResponse
}

type ClientActionInput struct {
	ID   string `path:"id"`
	Body struct {
		Action string `json:"action" enum:"deactivate,reactivate,archive"`
	}
}

func registerClients(api huma.API, scoped huma.Middlewares, svc *app.ClientService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/api/v1/clients",
		Summary:       "Register a client",
		Tags:          []string{"Clients"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   scoped,
	}, func(ctx context.Context, in *CreateClientInput) (*ClientOutput, error) {
		c, err := svc.Register(ctx, in.Body.Name, in.Body.TaxID, in.Body.Email)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ClientOutput{Body: toClientResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        "/api/v1/clients/{id}",
		Summary:     "Get a client",
		Tags:        []string{"Clients"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *GetByIDInput) (*ClientOutput, error) {
		c, err := svc.Get(ctx, in.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ClientOutput{Body: toClientResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/api/v1/clients",
		Summary:     "List clients",
		Tags:        []string{"Clients"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *ListClientsInput) (*ListClientsOutput, error) {
		clients, err := svc.List(ctx, domain.Page{Limit: in.Limit, Offset: in.Offset})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]ClientResponse, len(clients))
		for i, c := range clients {
			resp[i] = toClientResponse(c)
		}
		return &ListClientsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-client",
		Method:      http.MethodPost,
		Path:        "/api/v1/clients/{id}/actions",
		Summary:     "Apply a lifecycle action to a client",
		Tags:        []string{"Clients"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *ClientActionInput) (*ClientOutput, error) {
		c, err := svc.Transition(ctx, in.ID, domain.Action(in.Body.Action))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ClientOutput{Body: toClientResponse(c)}, nil
	})
}
