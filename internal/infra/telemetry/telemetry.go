package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/loadtrail/freight-authz/internal/infra/config"
)

// Provider holds the service-level counters. HTTP request metrics live in the
// metrics middleware; these cover the asynchronous surfaces.
type Provider struct {
	eventsPublished *prometheus.CounterVec
	recordsArchived prometheus.Counter
}

// Attach registers the service counters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	eventsPublished := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freight_authz",
		Name:      "events_published_total",
		Help:      "Total number of events handed to the event stream",
	}, []string{"event_type"})

	recordsArchived := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freight_authz",
		Name:      "history_records_archived_total",
		Help:      "Total number of history records flipped to archived",
	})

	return &Provider{
		eventsPublished: eventsPublished,
		recordsArchived: recordsArchived,
	}, nil
}

// EventPublished counts one published event of the given type.
func (p *Provider) EventPublished(eventType string) {
	if p == nil {
		return
	}
	p.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordsArchived counts rows archived by an archival run.
func (p *Provider) RecordsArchived(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.recordsArchived.Add(float64(n))
}
