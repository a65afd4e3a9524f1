// Package app holds the use cases. Every mutating use case follows the same
// sequence: load, mutate, save, then release the entity's events and publish
// them. Events are never published for state that failed to save.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

// Option configures a service.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

func buildOptions(opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for non-fatal follow-up failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// eventSource is implemented by every entity.
type eventSource interface {
	ReleaseEvents() []domain.Event
}

// publishReleased drains src and publishes its events stamped with tenantID.
// It must only be called after src has been saved.
func publishReleased(ctx context.Context, publisher domain.EventPublisher, tenantID string, src eventSource) error {
	events := src.ReleaseEvents()
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		events[i].TenantID = tenantID
	}
	if err := publisher.Publish(ctx, events); err != nil {
		return fmt.Errorf("publishing %d events: %w", len(events), err)
	}
	return nil
}

// publishScoped publishes events of a tenant-scoped entity on behalf of the
// tenant bound to ctx.
func publishScoped(ctx context.Context, publisher domain.EventPublisher, src eventSource) error {
	return publishReleased(ctx, publisher, tenancy.TenantID(ctx), src)
}

// withEntityID names the entity an ActionError was raised for.
func withEntityID(err error, id string) error {
	var actErr *domain.ActionError
	if errors.As(err, &actErr) && actErr.EntityID == "" {
		actErr.EntityID = id
	}
	return err
}
