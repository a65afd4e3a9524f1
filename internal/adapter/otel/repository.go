package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/serviq/internal/domain"
)

const tracerName = "github.com/neomorfeo/serviq/internal/adapter/otel"

// TracingRepository wraps a domain.TenantRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.TenantRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.TenantRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Create",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID()),
			attribute.String("tenant.subdomain", tenant.Subdomain()),
		),
	)
	defer span.End()

	return record(span, r.next.Create(ctx, tenant))
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByID",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	tenant, err := r.next.GetByID(ctx, id)
	return tenant, record(span, err)
}

func (r *TracingRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetBySubdomain",
		trace.WithAttributes(attribute.String("tenant.subdomain", subdomain)),
	)
	defer span.End()

	tenant, err := r.next.GetBySubdomain(ctx, subdomain)
	if err == nil {
		span.SetAttributes(
			attribute.String("tenant.id", tenant.ID()),
			attribute.String("tenant.status", string(tenant.Status())),
		)
	}
	return tenant, record(span, err)
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	tenants, err := r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(tenants)))
	}
	return tenants, record(span, err)
}

func (r *TracingRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Update",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID()),
			attribute.String("tenant.status", string(tenant.Status())),
		),
	)
	defer span.End()

	return record(span, r.next.Update(ctx, tenant))
}

// record marks span as failed when err is non-nil and returns err.
func record(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
