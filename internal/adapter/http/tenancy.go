package http

import (
	"encoding/json"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/serviq/internal/tenancy"
)

// tenantScope returns a middleware that resolves the request host to a tenant
// and binds it to the request context for the duration of the handler. The
// binding is released on every exit path, including panics.
func tenantScope(sw *tenancy.Switch) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		bound, scope, err := sw.Enter(ctx.Context(), ctx.Host())
		if err != nil {
			writeError(ctx, err)
			return
		}
		defer scope.Release()

		next(huma.WithContext(ctx, bound))
	}
}

func writeError(ctx huma.Context, err error) {
	apiErr := toHumaError(err)
	if apiErr.Status >= 500 {
		slog.ErrorContext(ctx.Context(), "entering tenant context", "host", ctx.Host(), "error", err)
	}
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(apiErr.Status)
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(apiErr)
}
