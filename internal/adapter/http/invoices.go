package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/domain"
)

type InvoiceResponse struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	Number      string `json:"number"`
	Total       int64  `json:"total" doc:"Total in minor currency units"`
	Outstanding int64  `json:"outstanding" doc:"Amount still owed"`
	Currency    string `json:"currency"`
	DueOn       string `json:"due_on" format:"date"`
	Status      string `json:"status"`
	UpdatedAt   string `json:"updated_at"`
}

func toInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	s := inv.Snapshot()
	return InvoiceResponse{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Number:      s.Number,
		Total:       s.Total,
		Outstanding: inv.Outstanding(),
		Currency:    s.Currency,
		DueOn:       s.DueOn.Format(time.DateOnly),
		Status:      string(s.Status),
		UpdatedAt:   s.UpdatedAt.UTC().Format(timestampFormat),
	}
}

type CreateInvoiceInput struct {
	Body struct {
		ClientID string `json:"client_id" minLength:"1"`
		Number   string `json:"number" minLength:"1" maxLength:"64"`
		Total    int64  `json:"total" minimum:"1"`
		Currency string `json:"currency" minLength:"3" maxLength:"3"`
		DueOn    string `json:"due_on" format:"date"`
	}
}

type InvoiceOutput struct {
	Body InvoiceResponse
}

type ListInvoicesInput struct {
	Status   string `query:"status" required:"false" enum:"draft,pending,overdue,paid,cancelled"`
	ClientID string `query:"client_id" required:"false"`
	Limit    int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500"`
	Offset   int    `query:"offset" required:"false" default:"0" minimum:"0"`
}

type ListInvoicesOutput struct {
	Body []InvoiceResponse
}

type PayInvoiceInput struct {
	ID   string `path:"id"`
	Body struct {
		Amount int64 `json:"amount" minimum:"1"`
	}
}

type CancelInvoiceInput struct {
	ID   string `path:"id"`
	Body struct {
		Reason string `json:"reason" minLength:"1"`
	}
}

func registerInvoices(api huma.API, scoped huma.Middlewares, svc *app.InvoiceService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-invoice",
		Method:        http.MethodPost,
		Path:          "/api/v1/invoices",
		Summary:       "Draft an invoice",
		Tags:          []string{"Invoices"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   scoped,
	}, func(ctx context.Context, in *CreateInvoiceInput) (*InvoiceOutput, error) {
		dueOn, err := time.Parse(time.DateOnly, in.Body.DueOn)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("due_on must be a date")
		}
		inv, err := svc.Draft(ctx, app.NewInvoice{
			ClientID: in.Body.ClientID,
			Number:   in.Body.Number,
			Total:    in.Body.Total,
			Currency: in.Body.Currency,
			DueOn:    dueOn,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InvoiceOutput{Body: toInvoiceResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-invoice",
		Method:      http.MethodGet,
		Path:        "/api/v1/invoices/{id}",
		Summary:     "Get an invoice",
		Tags:        []string{"Invoices"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *GetByIDInput) (*InvoiceOutput, error) {
		inv, err := svc.Get(ctx, in.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InvoiceOutput{Body: toInvoiceResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-invoices",
		Method:      http.MethodGet,
		Path:        "/api/v1/invoices",
		Summary:     "List invoices",
		Tags:        []string{"Invoices"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *ListInvoicesInput) (*ListInvoicesOutput, error) {
		filter := domain.InvoiceFilter{
			ClientID: in.ClientID,
			Page:     domain.Page{Limit: in.Limit, Offset: in.Offset},
		}
		if in.Status != "" {
			s := domain.InvoiceStatus(in.Status)
			filter.Status = &s
		}
		invoices, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]InvoiceResponse, len(invoices))
		for i, inv := range invoices {
			resp[i] = toInvoiceResponse(inv)
		}
		return &ListInvoicesOutput{Body: resp}, nil
	})

	// Transitions without a body.
	for _, op := range []struct {
		id, path, summary string
		apply             func(context.Context, string) (*domain.Invoice, error)
	}{
		{"issue-invoice", "/api/v1/invoices/{id}/issue", "Issue a draft invoice", svc.Issue},
		{"mark-invoice-overdue", "/api/v1/invoices/{id}/overdue", "Flag an invoice past its due date", svc.MarkOverdue},
	} {
		huma.Register(api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     op.summary,
			Tags:        []string{"Invoices"},
			Middlewares: scoped,
		}, func(ctx context.Context, in *GetByIDInput) (*InvoiceOutput, error) {
			inv, err := op.apply(ctx, in.ID)
			if err != nil {
				return nil, toHumaError(err)
			}
			return &InvoiceOutput{Body: toInvoiceResponse(inv)}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "pay-invoice",
		Method:      http.MethodPost,
		Path:        "/api/v1/invoices/{id}/payments",
		Summary:     "Record full payment of an invoice",
		Tags:        []string{"Invoices"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *PayInvoiceInput) (*InvoiceOutput, error) {
		inv, err := svc.Pay(ctx, in.ID, in.Body.Amount)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InvoiceOutput{Body: toInvoiceResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-invoice",
		Method:      http.MethodPost,
		Path:        "/api/v1/invoices/{id}/cancel",
		Summary:     "Cancel an invoice",
		Tags:        []string{"Invoices"},
		Middlewares: scoped,
	}, func(ctx context.Context, in *CancelInvoiceInput) (*InvoiceOutput, error) {
		inv, err := svc.Cancel(ctx, in.ID, in.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InvoiceOutput{Body: toInvoiceResponse(inv)}, nil
	})
}
