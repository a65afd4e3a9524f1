package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

var (
	_ tenancy.ResolveObserver = (*Metrics)(nil)
	_ tenancy.PoolObserver    = (*Metrics)(nil)
)

// Metrics provides observability for tenant resolution, store leases and
// event publication.
type Metrics struct {
	TenantResolutions *prometheus.CounterVec
	ActiveLeases      prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
	PublishFailures   prometheus.Counter
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TenantResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "serviq_tenant_resolutions_total",
			Help: "Tenant resolutions by outcome",
		}, []string{"outcome"}),
		ActiveLeases: factory.NewGauge(prometheus.GaugeOpts{
			Name: "serviq_tenant_store_leases",
			Help: "Outstanding leases on tenant stores",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "serviq_events_published_total",
			Help: "Domain events handed to the publisher, by event name",
		}, []string{"event"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "serviq_event_publish_failures_total",
			Help: "Publish calls that returned an error",
		}),
	}
}

// TenantResolved records a resolution outcome.
func (m *Metrics) TenantResolved(outcome string) {
	m.TenantResolutions.WithLabelValues(outcome).Inc()
}

// LeaseAcquired and LeaseReleased track outstanding store leases. The
// tenant id is not used as a label to keep cardinality bounded.
func (m *Metrics) LeaseAcquired(string) { m.ActiveLeases.Inc() }
func (m *Metrics) LeaseReleased(string) { m.ActiveLeases.Dec() }

// Publisher counts events flowing through an EventPublisher.
type Publisher struct {
	next    domain.EventPublisher
	metrics *Metrics
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher wraps next.
func NewPublisher(next domain.EventPublisher, m *Metrics) *Publisher {
	return &Publisher{next: next, metrics: m}
}

func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	if err := p.next.Publish(ctx, events); err != nil {
		p.metrics.PublishFailures.Inc()
		return err
	}
	for _, e := range events {
		p.metrics.EventsPublished.WithLabelValues(e.Name).Inc()
	}
	return nil
}
