package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/domain"
)

type ContractResponse struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	Reference  string `json:"reference"`
	StartsOn   string `json:"starts_on" format:"date"`
	EndsOn     string `json:"ends_on" format:"date"`
	MonthlyFee int64  `json:"monthly_fee" doc:"Monthly fee in minor currency units"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updated_at"`
}

func toContractResponse(c *domain.Contract) ContractResponse {
	s := c.Snapshot()
	return ContractResponse{
		ID:         s.ID,
		ClientID:   s.ClientID,
		Reference:  s.Reference,
		StartsOn:   s.StartsOn.Format(time.DateOnly),
		EndsOn:     s.EndsOn.Format(time.DateOnly),
		MonthlyFee: s.MonthlyFee,
		Status:     string(s.Status),
		UpdatedAt:  s.UpdatedAt.UTC().Format(timestampFormat),
	}
}

type CreateContractInput struct {
	Body struct {
		ClientID   string `json:"client_id" minLength:"1"`
		Reference  string `json:"reference" minLength:"1" maxLength:"64"`
		StartsOn   string `json:"starts_on" format:"date"`
		EndsOn     string `json:"ends_on" format:"date"`
		MonthlyFee int64  `json:"monthly_fee" minimum:"0"`
	}
}

type ContractOutput struct {
	Body ContractResponse
}

type ListContractsInput struct {
	ClientID string `query:"client_id" required:"true"`
}

type ListContractsOutput struct {
	Body []ContractResponse
}

type ContractActionInput struct {
	ID   string `path:"id"`
	Body struct {
		Action string `json:"action" enum:"activate,suspend,resume,terminate,expire"`
		Reason string `json:"reason,omitempty" doc:"Required for terminate"`
	}
}

func registerContracts(api huma.API, scoped huma.Middlewares, svc *app.ContractService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/api/v1/contracts",
		Summary:       "Draft a maintenance contract",
		Tags:          []string{"Contracts"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   scoped,
	}, func(ctx context.Context, in *CreateContractInput) (*ContractOutput, error) {
		startsOn, err := time.Parse(time.DateOnly, in.Body.StartsOn)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("starts_on must be a date")
		}
		endsOn, err := time.Parse(time.DateOnly, in.Body.EndsOn)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("ends_on must be a date")
		}

		c, err := svc.Draft(ctx, app.NewContract{
			ClientID:   in.Body.ClientID,
			Reference:  in.Body.Reference,
			StartsOn:   startsOn,
			EndsOn:     endsOn,
			MonthlyFee: in.Body.MonthlyFee,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContractOutput{Body: toContractResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contract",
		Method:      http.MethodGet,
		Path:        "/api/v1/contracts/{id}",
		Summary:     "Get a contract",
		Tags:        []string{"Contracts"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *GetByIDInput) (*ContractOutput, error) {
		c, err := svc.Get(ctx, in.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContractOutput{Body: toContractResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/api/v1/contracts",
		Summary:     "List a client's contracts",
		Tags:        []string{"Contracts"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *ListContractsInput) (*ListContractsOutput, error) {
		contracts, err := svc.ListByClient(ctx, in.ClientID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]ContractResponse, len(contracts))
		for i, c := range contracts {
			resp[i] = toContractResponse(c)
		}
		return &ListContractsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-contract",
		Method:      http.MethodPost,
		Path:        "/api/v1/contracts/{id}/actions",
		Summary:     "Apply a lifecycle action to a contract",
		Tags:        []string{"Contracts"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *ContractActionInput) (*ContractOutput, error) {
		c, err := svc.Transition(ctx, in.ID, domain.Action(in.Body.Action), in.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContractOutput{Body: toContractResponse(c)}, nil
	})
}
