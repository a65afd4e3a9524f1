package app

import (
	"log/slog"

	"github.com/neomorfeo/serviq/internal/domain"
)

func slogTenant(t *domain.Tenant) slog.Attr {
	return slog.Group("tenant", "id", t.ID(), "subdomain", t.Subdomain())
}
