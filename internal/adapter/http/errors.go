package http

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/domain"
)

// APIError is the problem+json body returned for every failed request. Code
// is stable across releases and safe for clients to switch on.
type APIError struct {
	huma.ErrorModel
	Code string `json:"code" doc:"Machine-readable error code"`
}

var statusByCode = map[string]int{
	domain.CodeTenantNotFound:      http.StatusNotFound,
	domain.CodeTenantInactive:      http.StatusForbidden,
	domain.CodeNotFound:            http.StatusNotFound,
	domain.CodeSubdomainConflict:   http.StatusConflict,
	domain.CodeConcurrentUpdate:    http.StatusConflict,
	domain.CodeInvalidTransition:   http.StatusUnprocessableEntity,
	domain.CodeInvalidAction:       http.StatusUnprocessableEntity,
	domain.CodePaymentMismatch:     http.StatusUnprocessableEntity,
	domain.CodeInvariantViolation:  http.StatusUnprocessableEntity,
	domain.CodeContextAlreadyBound: http.StatusInternalServerError,
	domain.CodeNoTenantContext:     http.StatusInternalServerError,
}

// toHumaError translates domain errors to HTTP errors. Internal errors never
// leak their message.
func toHumaError(err error) *APIError {
	code := domain.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		return &APIError{
			ErrorModel: huma.ErrorModel{
				Title:  http.StatusText(http.StatusInternalServerError),
				Status: http.StatusInternalServerError,
				Detail: "internal server error",
			},
			Code: domain.CodeInternal,
		}
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal server error"
	}
	return &APIError{
		ErrorModel: huma.ErrorModel{
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
		},
		Code: code,
	}
}
